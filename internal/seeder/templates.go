package seeder

import "github.com/spec-kit/support-desk/internal/domain"

// FieldTemplate describes a form field inside a group template. ID is the stable
// identifier tickets key their formData by; it must never change once shipped, even
// when the label is reworded. Templates without an ID fall back to a slug of the
// subcategory, group and label, which is only safe while the label never changes.
type FieldTemplate struct {
	ID          string
	Label       string
	Type        domain.FieldType
	Options     []string
	IsRequired  bool
	IsHidden    bool
	Description string
	Validation  []domain.ValidationRule
}

// GroupTemplate is a named section of a subcategory's form.
type GroupTemplate struct {
	Name                 string
	Fields               []FieldTemplate
	IsCollapsible        bool
	IsCollapsedByDefault bool
}

// SubcategoryTemplate declares a subcategory and its form layout.
type SubcategoryTemplate struct {
	Name        string
	Description string
	Groups      []GroupTemplate
}

// CategoryTemplate declares a category subtree.
type CategoryTemplate struct {
	Name          string
	Description   string
	Icon          string
	Color         string
	Subcategories []SubcategoryTemplate
}

// Templates is the stock taxonomy seeded into fresh environments. Category, subcategory
// and group ids are derived from the names; field ids are declared explicitly so a label
// rework updates the same row and historical formData keeps resolving.
var Templates = []CategoryTemplate{
	{
		Name:        "IT Support",
		Description: "Hardware, software and account issues",
		Icon:        "laptop",
		Color:       "#2563eb",
		Subcategories: []SubcategoryTemplate{
			{
				Name:        "Hardware Failure",
				Description: "Broken or malfunctioning equipment",
				Groups: []GroupTemplate{
					{
						Name: "Device Details",
						Fields: []FieldTemplate{
							{
								ID:         "fld-hw-asset-tag",
								Label:      "Asset Tag",
								Type:       domain.FieldTypeShortText,
								IsRequired: true,
								Validation: []domain.ValidationRule{
									{Kind: domain.RulePattern, Param: `[A-Z]{2}-\d{4,6}`, Message: "asset tags look like AB-12345"},
								},
							},
							{
								ID:         "fld-hw-device-type",
								Label:      "Device Type",
								Type:       domain.FieldTypeDropdown,
								Options:    []string{"Laptop", "Desktop", "Monitor", "Printer", "Phone", "Other"},
								IsRequired: true,
							},
							{
								ID:          "fld-hw-problem-description",
								Label:       "Problem Description",
								Type:        domain.FieldTypeLongText,
								IsRequired:  true,
								Description: "What happened, and what were you doing at the time?",
								Validation: []domain.ValidationRule{
									{Kind: domain.RuleMinLength, Param: "20"},
								},
							},
						},
					},
					{
						Name:                 "Contact Preferences",
						IsCollapsible:        true,
						IsCollapsedByDefault: true,
						Fields: []FieldTemplate{
							{ID: "fld-hw-callback-number", Label: "Callback Number", Type: domain.FieldTypePhone},
							{ID: "fld-hw-contact-email", Label: "Preferred Contact Email", Type: domain.FieldTypeEmail},
						},
					},
				},
			},
			{
				Name:        "Account Access",
				Description: "Logins, permissions and multi-factor resets",
				Groups: []GroupTemplate{
					{
						Name: "Access Request",
						Fields: []FieldTemplate{
							{
								ID:         "fld-access-system-name",
								Label:      "System Name",
								Type:       domain.FieldTypeShortText,
								IsRequired: true,
								Validation: []domain.ValidationRule{
									{Kind: domain.RuleMaxLength, Param: "80"},
								},
							},
							{
								ID:         "fld-access-needed-by",
								Label:      "Access Needed By",
								Type:       domain.FieldTypeDate,
								IsRequired: true,
							},
							{
								ID:         "fld-access-request-type",
								Label:      "Request Type",
								Type:       domain.FieldTypeDropdown,
								Options:    []string{"New account", "Password reset", "Permission change", "MFA reset"},
								IsRequired: true,
							},
						},
					},
				},
			},
		},
	},
	{
		Name:        "Facilities",
		Description: "Building, workspace and environment issues",
		Icon:        "building",
		Color:       "#16a34a",
		Subcategories: []SubcategoryTemplate{
			{
				Name:        "Leak Report",
				Description: "Water or plumbing leaks anywhere on site",
				Groups: []GroupTemplate{
					{
						Name: "Leak Details",
						Fields: []FieldTemplate{
							{
								ID:          "fld-leak-location",
								Label:       "Location",
								Type:        domain.FieldTypeShortText,
								IsRequired:  true,
								Description: "Building, floor and nearest room number",
							},
							{
								ID:         "fld-leak-description",
								Label:      "Leak Description",
								Type:       domain.FieldTypeLongText,
								IsRequired: true,
								Validation: []domain.ValidationRule{
									{Kind: domain.RuleMinLength, Param: "50", Message: "please describe the leak in at least 50 characters"},
								},
							},
							{
								ID:         "fld-leak-severity",
								Label:      "Severity",
								Type:       domain.FieldTypeDropdown,
								Options:    []string{"Low", "Medium", "High"},
								IsRequired: true,
							},
						},
					},
					{
						Name:                 "Safety",
						IsCollapsible:        true,
						IsCollapsedByDefault: false,
						Fields: []FieldTemplate{
							{ID: "fld-leak-electrical-hazard", Label: "Electrical Hazard Nearby", Type: domain.FieldTypeCheckbox, Options: []string{"Yes"}},
							{ID: "fld-leak-cordoned-off", Label: "Area Cordoned Off", Type: domain.FieldTypeCheckbox, Options: []string{"Yes"}},
						},
					},
				},
			},
			{
				Name:        "Climate Control",
				Description: "Heating, cooling and ventilation",
				Groups: []GroupTemplate{
					{
						Name: "Comfort Issue",
						Fields: []FieldTemplate{
							{
								ID:         "fld-climate-zone",
								Label:      "Zone",
								Type:       domain.FieldTypeShortText,
								IsRequired: true,
							},
							{
								ID:    "fld-climate-temperature",
								Label: "Reported Temperature",
								Type:  domain.FieldTypeNumber,
								Validation: []domain.ValidationRule{
									{Kind: domain.RuleRange, Param: "-10,50", Message: "temperature must be between -10 and 50"},
								},
							},
							{
								ID:      "fld-climate-issue",
								Label:   "Issue",
								Type:    domain.FieldTypeDropdown,
								Options: []string{"Too hot", "Too cold", "No airflow", "Strange smell"},
							},
						},
					},
				},
			},
		},
	},
	{
		Name:        "Human Resources",
		Description: "People operations and workplace questions",
		Icon:        "users",
		Color:       "#9333ea",
		Subcategories: []SubcategoryTemplate{
			{
				Name:        "Payroll Question",
				Description: "Pay, deductions and reimbursements",
				Groups: []GroupTemplate{
					{
						Name: "Question",
						Fields: []FieldTemplate{
							{
								ID:         "fld-payroll-pay-period",
								Label:      "Pay Period",
								Type:       domain.FieldTypeShortText,
								IsRequired: true,
							},
							{
								ID:         "fld-payroll-question-details",
								Label:      "Question Details",
								Type:       domain.FieldTypeLongText,
								IsRequired: true,
								Validation: []domain.ValidationRule{
									{Kind: domain.RuleMinLength, Param: "10"},
								},
							},
							{
								ID:       "fld-payroll-employee-id",
								Label:    "Employee ID",
								Type:     domain.FieldTypeShortText,
								IsHidden: true,
								Validation: []domain.ValidationRule{
									{Kind: domain.RulePattern, Param: `E\d{5}`, Message: "employee ids look like E12345"},
								},
							},
						},
					},
				},
			},
		},
	},
}
