package model

// SubmissionItem is one component in a batch submit or withdraw payload.
// EvidenceID is required only for withdrawals.
type SubmissionItem struct {
	EvidenceID    string `json:"id,omitempty"`
	ComponentID   string `json:"id_komponen_setoran" binding:"required"`
	ComponentName string `json:"nama_komponen_setoran" binding:"required"`
}

// SubmissionRequest is the body of POST/DELETE /mahasiswa/setoran/{nim}.
// Date (tgl_setoran) is optional; the server assigns the current date
// when absent. The client sends each batch exactly as staged; it performs
// no deduplication or merging, the server owns conflict resolution.
type SubmissionRequest struct {
	Items []SubmissionItem `json:"data_setoran" binding:"required,min=1,dive"`
	Date  string           `json:"tgl_setoran,omitempty" binding:"omitempty,datetime=2006-01-02"`
}
