package model

import "encoding/json"

// StudentRecord is one advisee row in the advisor summary.
type StudentRecord struct {
	Email    string             `json:"email"`
	NIM      string             `json:"nim"`
	Name     string             `json:"nama"`
	Cohort   string             `json:"angkatan"`
	Semester int                `json:"semester"`
	Progress SubmissionProgress `json:"info_setoran"`
}

// SubmissionProgress summarizes one student's memorization submissions.
// The server owns these counts; the client renders them as-is and never
// recomputes them for persistence.
type SubmissionProgress struct {
	Required  int     `json:"total_wajib_setor"`
	Completed int     `json:"total_sudah_setor"`
	Pending   int     `json:"total_belum_setor"`
	Percent   float64 `json:"persentase_progres_setor"`
	// LastSubmissionDate is null until the student's first submission.
	LastSubmissionDate *string               `json:"tgl_terakhir_setor"`
	LastSubmission     string                `json:"terakhir_setor"`
	Components         []SubmissionComponent `json:"komponen_setoran,omitempty"`
}

// SubmissionComponent is one curriculum component (a surah to memorize).
// Evidence is present only when the component has been validated.
type SubmissionComponent struct {
	ID        string              `json:"id"`
	Name      string              `json:"nama"`
	Label     string              `json:"label"`
	Completed bool                `json:"sudah_setor"`
	Evidence  *SubmissionEvidence `json:"info_setoran,omitempty"`
}

// SubmissionEvidence records a validated submission.
type SubmissionEvidence struct {
	ID          string  `json:"id"`
	SubmittedAt string  `json:"tgl_setoran"`
	ValidatedAt string  `json:"tgl_validasi"`
	ValidatedBy Advisor `json:"dosen_yang_mengesahkan"`
}

// StudentInfo is the identity block of the per-student detail payload.
type StudentInfo struct {
	Name     string  `json:"nama"`
	NIM      string  `json:"nim"`
	Email    string  `json:"email"`
	Cohort   string  `json:"angkatan"`
	Semester int     `json:"semester"`
	Advisor  Advisor `json:"dosen_pa"`
}

// SubmissionSheet is the per-student submission block. Log and Breakdown
// are passed through untyped: the client never reads them, but a snapshot
// must round-trip them unchanged.
type SubmissionSheet struct {
	Log        []json.RawMessage     `json:"log"`
	Summary    SubmissionProgress    `json:"info_dasar"`
	Breakdown  []json.RawMessage     `json:"ringkasan"`
	Components []SubmissionComponent `json:"detail"`
}

// StudentDetail is one student's full submission state,
// from GET /mahasiswa/setoran/{nim}.
type StudentDetail struct {
	Info       StudentInfo     `json:"info"`
	Submission SubmissionSheet `json:"setoran"`
}

// StudentDetailResponse is the wire shape of GET /mahasiswa/setoran/{nim}.
type StudentDetailResponse struct {
	Envelope
	Data StudentDetail `json:"data"`
}
