package catalog

import "github.com/ifilter/ifadmin/pkg/grid"

// Render expressions shared by the built-in resources.
const (
	activePill = `{"text": "Active" if row["active"] else "Inactive", "kind": "pill", "class": "ok" if row["active"] else "muted"}`

	ticketStatus = `{"text": row["status"].replace("_", " ").title(), "kind": "pill", "class": "ok" if row["resolved"] else ("warn" if row["priority"] == "high" else "")}`

	appName = `{"text": row["name"], "kind": "nav", "href": "/resources/apps/" + row["id"]}`
)

var planOptions = []grid.Option{
	{Value: "free", Label: "Free"},
	{Value: "pro", Label: "Pro"},
	{Value: "enterprise", Label: "Enterprise"},
}

var statusOptions = []grid.Option{
	{Value: "draft", Label: "Draft"},
	{Value: "review", Label: "In review"},
	{Value: "live", Label: "Live"},
	{Value: "retired", Label: "Retired"},
}

// Builtin returns fresh copies of the built-in resource definitions.
func Builtin() map[string]ResourceConfig {
	return map[string]ResourceConfig{
		"clients": {
			Title: "Clients",
			Columns: []ColumnConfig{
				{Key: grid.FullNameKey, Label: "Name", Sortable: true, SortKey: "last_name"},
				{Key: "email", Type: grid.TypeEditable, Editor: grid.EditorEmail, Sortable: true},
				{Key: "phone", Type: grid.TypeEditable, Editor: grid.EditorPhone},
				{Key: "settings.plan", Label: "Plan", Type: grid.TypeEditable, Editor: grid.EditorSelect, Options: planOptions},
				{Key: "active", Type: grid.TypeEditable, Editor: grid.EditorBoolean, Sortable: true},
				{ID: "status", Key: "active", Label: "Status", Type: grid.TypeStatus, Render: activePill},
				{Key: "joined_at", Label: "Joined", Type: grid.TypeDate, Sortable: true},
				{Key: "ui.note", Label: "Note", Type: grid.TypeEditable, Editor: grid.EditorTextarea, LocalOnly: true},
			},
		},
		"apps": {
			Title: "Applications",
			Columns: []ColumnConfig{
				{Key: "name", Type: grid.TypeNavLink, Sortable: true, Render: appName},
				{Key: "owner_email", Label: "Owner", Type: grid.TypeEmail, Sortable: true},
				{Key: "status", Type: grid.TypeEditable, Editor: grid.EditorSelect, Options: statusOptions, Sortable: true},
				{Key: "settings.region", Label: "Region", Type: grid.TypeEditable},
				{Key: "settings.max_users", Label: "Max Users", Type: grid.TypeEditable, Editor: grid.EditorNumber},
				{Key: "active", Type: grid.TypeBoolean, Sortable: true},
				{Key: "document_url", Label: "Contract", Type: grid.TypeViewDownload},
				{Key: "created_at", Label: "Created", Type: grid.TypeDateTime, Sortable: true},
			},
		},
		"tickets": {
			Title: "Tickets",
			Columns: []ColumnConfig{
				{Key: "subject", Type: grid.TypeEditable, Editor: grid.EditorTextarea, Sortable: true},
				{Key: "priority", Sortable: true},
				{ID: "state", Key: "status", Label: "Status", Type: grid.TypeStatus, Render: ticketStatus, Sortable: true},
				{Key: "deadline", Type: grid.TypeEditable, Editor: grid.EditorDate, Sortable: true},
				{ID: "due", Key: "deadline", Label: "Due", Type: grid.TypeDateDeadline},
				{Key: "resolved", Type: grid.TypeEditable, Editor: grid.EditorBoolean},
				{Key: "meta.channel", Label: "Channel", Type: grid.TypeText},
				{Key: "attachment_url", Label: "Attachment", Type: grid.TypeDownload},
			},
		},
		"plans": {
			Title: "Plans",
			Columns: []ColumnConfig{
				{Key: "image_url", Label: "Logo", Type: grid.TypeImage},
				{Key: "name", Type: grid.TypeEditable, Sortable: true},
				{Key: "price", Type: grid.TypeEditable, Editor: grid.EditorNumber, Sortable: true},
				{Key: "seats", Type: grid.TypeEditable, Editor: grid.EditorNumber, Sortable: true},
				{Key: "features.sso", Label: "SSO", Type: grid.TypeEditable, Editor: grid.EditorBoolean},
				{Key: "active", Type: grid.TypeEditable, Editor: grid.EditorBoolean},
			},
		},
	}
}
