package instrumentation

// Status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// OAuth result values. They match the values the google package passes to
// its OnAuth and OnRefresh hooks.
const (
	OAuthResultSuccess = "success"
	OAuthResultFailure = "failure"
	OAuthResultExpired = "expired"
)

// Services.
const (
	ServiceAuth   = "auth"
	ServiceDrive  = "drive"
	ServiceSheets = "sheets"
	ServiceDocs   = "docs"
)

// Operations. Keep this set small; it is a metric label.
const (
	OperationList   = "list"
	OperationGet    = "get"
	OperationCreate = "create"
	OperationUpdate = "update"
	OperationDelete = "delete"
	OperationSearch = "search"
	OperationExport = "export"
	OperationShare  = "share"
)
