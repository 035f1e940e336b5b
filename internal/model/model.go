package model

import "time"

// ShareLink is the public handle attached to a shared file or folder.
// It is created and revoked only through the explicit share operations.
type ShareLink struct {
	Token         string     `json:"token"`
	IsActive      bool       `json:"is_active"`
	DownloadCount int        `json:"download_count,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
}

// FileDescriptor is a remote file's metadata as known to the client. The
// backend owns it; the client only changes it through explicit mutations.
type FileDescriptor struct {
	ID               string     `json:"id"`
	OriginalFilename string     `json:"original_filename"`
	MimeType         string     `json:"mime_type,omitempty"`
	SizeBytes        int64      `json:"size_bytes"`
	FolderID         string     `json:"folder_id,omitempty"`
	IsPublic         bool       `json:"is_public,omitempty"`
	ShareLink        *ShareLink `json:"share_link,omitempty"`
	Tags             []string   `json:"tags,omitempty"`
	IsTrashed        bool       `json:"is_trashed,omitempty"`
	CreatedAt        time.Time  `json:"created_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at,omitempty"`
}

// Key identifies the descriptor in the local cache.
func (f *FileDescriptor) Key() string { return f.ID }

// HasActiveShare reports whether the file can be fetched through the public
// byte-serving endpoint without credentials.
func (f *FileDescriptor) HasActiveShare() bool {
	return f.ShareLink != nil && f.ShareLink.IsActive && f.ShareLink.Token != ""
}

// FolderDescriptor is a remote folder's metadata.
type FolderDescriptor struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	ShareLink *ShareLink `json:"share_link,omitempty"`
	FileCount int        `json:"file_count,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// Key identifies the descriptor in the local cache.
func (f *FolderDescriptor) Key() string { return f.ID }

// UploadStatus is the lifecycle state of an UploadTask.
type UploadStatus string

const (
	StatusUploading UploadStatus = "uploading"
	StatusCompleted UploadStatus = "completed"
	StatusError     UploadStatus = "error"
)

// UploadTask tracks one enqueued local file. Progress only moves forward.
type UploadTask struct {
	ID        string       `json:"id"`
	Filename  string       `json:"filename"`
	SizeBytes int64        `json:"size_bytes"`
	Progress  int          `json:"progress"`
	Status    UploadStatus `json:"status"`

	// Reason carries the failure message when Status is StatusError.
	Reason string `json:"reason,omitempty"`

	// RelocationErr records a failed move-to-folder after a successful
	// upload. It never changes Status: the upload itself still succeeded.
	RelocationErr string `json:"relocation_err,omitempty"`

	// FileID is the backend id assigned once the upload completes.
	FileID string `json:"file_id,omitempty"`
}
