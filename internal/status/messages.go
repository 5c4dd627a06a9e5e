package status

// Fixed operator-facing messages.
const (
	UploadSucceeded     = "Upload successful!"
	UploadFailed        = "Upload failed"
	InvalidCSV          = "Please upload a CSV file"
	CSVTooLarge         = "File size must be less than 5MB"
	DatabaseCleared     = "Database cleared successfully!"
	ClearFailed         = "Failed to clear database"
	ExportSucceeded     = "Export saved to"
	ExportFailed        = "Export failed"
	CallsFailed         = "Failed to initiate calls"
	CallsStarted        = "Calls initiated"
	ConfirmClear        = "Are you sure you want to clear all businesses?"
	ConfirmCallAll      = "Are you sure you want to call all businesses?"
	ConfirmDelete       = "Are you sure you want to delete this recording?"
	ActiveUpdated       = "Active recording updated"
	ActiveFailed        = "Failed to set active recording"
	RecordingSaved      = "Recording saved successfully!"
	RecordingFailed     = "Failed to save recording"
	NoRecording         = "No recording to save"
	RecordingDeleted    = "Recording deleted"
	DeleteFailed        = "Failed to delete recording"
	RecordingsGenerated = "Standard recordings generated"
	GenerateFailed      = "Failed to generate recordings"
	FetchFailed         = "Failed to load businesses"
)
