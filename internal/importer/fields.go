package importer

// Target field keys for the opportunities import type.
const (
	FieldTitle            = "title"
	FieldContactEmail     = "contact_email"
	FieldContactFirstName = "contact_first_name"
	FieldContactLastName  = "contact_last_name"
	FieldContactFullName  = "contact_full_name"
	FieldContactPhone     = "contact_phone"
	FieldCustomerEmail    = "customer_email"
	FieldCustomerName     = "customer_name"
	FieldOwnerEmail       = "owner_email"
	FieldLeadTitle        = "lead_title"
	FieldLeadStatus       = "lead_status"
	FieldType             = "type"
	FieldStage            = "stage"
	FieldValue            = "value"
	FieldRecurring        = "recurring"
	FieldCloseDate        = "close_date"
	FieldDescription      = "description"
	FieldNotes            = "notes"
)

// ImportTypeOpportunities is the only import type this service knows today.
const ImportTypeOpportunities = "opportunities"

// Field describes one importable target field for the mapping UI.
type Field struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Description string `json:"description"`
}

var opportunityFields = []Field{
	{Key: FieldTitle, Label: "Opportunity Title", Required: true, Description: "Name of the opportunity. Rows without a title fail."},
	{Key: FieldContactEmail, Label: "Contact Email", Required: true, Description: "Unique email of the contact. Existing contacts are reused."},
	{Key: FieldContactFirstName, Label: "Contact First Name", Description: "First name used when the contact has to be created."},
	{Key: FieldContactLastName, Label: "Contact Last Name", Description: "Last name used when the contact has to be created."},
	{Key: FieldContactFullName, Label: "Contact Full Name", Description: "Fallback when first/last name columns are absent; split on the first space."},
	{Key: FieldContactPhone, Label: "Contact Phone", Description: "Phone number stored on newly created contacts."},
	{Key: FieldCustomerEmail, Label: "Customer Email", Description: "Resolves the customer by exact email. Takes precedence over customer name."},
	{Key: FieldCustomerName, Label: "Customer Name", Description: "Resolves the customer by exact name when no email matches."},
	{Key: FieldOwnerEmail, Label: "Owner Email", Description: "Email of the user who owns the lead and opportunity."},
	{Key: FieldLeadTitle, Label: "Lead Title", Description: "Lead the opportunity belongs to. Defaults to the opportunity title."},
	{Key: FieldLeadStatus, Label: "Lead Status", Description: "One of NEW, CONTACTED, QUALIFIED, LOST, WON."},
	{Key: FieldType, Label: "Opportunity Type", Description: "One of NEW_BUSINESS, RENEWAL, UPSELL, CROSS_SELL."},
	{Key: FieldStage, Label: "Stage", Description: "Pipeline stage. Falls back to the job default, then Prospecting."},
	{Key: FieldValue, Label: "Value", Description: "Deal value. Currency symbols and thousands separators are stripped."},
	{Key: FieldRecurring, Label: "Recurring", Description: "Recurring deal flag. true/1/yes/y count as true, anything else as false."},
	{Key: FieldCloseDate, Label: "Close Date", Description: "Expected close date, e.g. 2026-03-22 or 03/22/2026."},
	{Key: FieldDescription, Label: "Description", Description: "Free text. HTML is stripped."},
	{Key: FieldNotes, Label: "Notes", Description: "Free text appended to the description as a Notes section."},
}

// Catalog returns the importable fields for importType, or nil for an unknown
// type.
func Catalog(importType string) []Field {
	if importType != ImportTypeOpportunities {
		return nil
	}
	fields := make([]Field, len(opportunityFields))
	copy(fields, opportunityFields)
	return fields
}

// RequiredFields lists the field keys a mapping must cover.
func RequiredFields(importType string) []string {
	required := []string{}
	for _, field := range Catalog(importType) {
		if field.Required {
			required = append(required, field.Key)
		}
	}
	return required
}

func knownFieldKeys(importType string) map[string]struct{} {
	keys := map[string]struct{}{}
	for _, field := range Catalog(importType) {
		keys[field.Key] = struct{}{}
	}
	return keys
}
