package model

// Envelope is the backend's standard response wrapper. When Response is
// false, Message carries the user-facing failure reason and Data is empty.
type Envelope struct {
	Response bool   `json:"response"`
	Message  string `json:"message"`
}

// Advisor identifies a dosen PA (academic advisor).
type Advisor struct {
	NIP   string `json:"nip"`
	Name  string `json:"nama"`
	Email string `json:"email"`
}

// AdvisorSummary is the advisor's dashboard payload: identity plus the
// full advisee roster. Replaced wholesale on every successful fetch.
type AdvisorSummary struct {
	NIP      string      `json:"nip"`
	Name     string      `json:"nama"`
	Email    string      `json:"email"`
	Advisees AdviseeInfo `json:"info_mahasiswa_pa"`
}

// AdviseeInfo groups per-cohort counts with the flat student list.
type AdviseeInfo struct {
	CohortCounts []CohortCount   `json:"ringkasan"`
	Students     []StudentRecord `json:"daftar_mahasiswa"`
}

// CohortCount is the number of advisees admitted in one year (angkatan).
type CohortCount struct {
	Year  string `json:"tahun"`
	Total int    `json:"total"`
}

// AdvisorSummaryResponse is the wire shape of GET /dosen/pa-saya.
type AdvisorSummaryResponse struct {
	Envelope
	Data AdvisorSummary `json:"data"`
}
