package schema

// Builtin returns a registry preloaded with the contracts for the
// platform's standard producer families.
func Builtin() *Registry {
	r := NewRegistry()
	for _, s := range builtinSources {
		// Register only fails on an empty source tag.
		_ = r.Register(s)
	}
	return r
}

var builtinSources = []*Source{
	{
		Source: "accounting",
		Types: []string{
			"bill_created",
			"bill_updated",
			"invoice_created",
			"invoice_updated",
			"payment_received",
			"contact_updated",
		},
		Required: []string{"resourceId", "tenantId", "eventDateUtc"},
	},
	{
		Source: "scheduler",
		Types: []string{
			"daily_reconciliation",
			"email_sync",
			"calendar_sync",
			"compliance_check",
			"report_generation",
		},
		Optional: []string{"triggeredAt", "jobType"},
	},
	{
		Source:   "document-upload",
		Types:    []string{"document_uploaded"},
		Required: []string{"documentId", "fileName"},
		Optional: []string{"contentType", "sizeBytes", "uploadedBy"},
	},
	{
		Source:   "user",
		Optional: []string{"userId", "action"},
	},
	{
		Source: "system",
	},
}
