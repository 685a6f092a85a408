package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/setorandev/setoran-client/internal/model"
)

// curriculum is the memorization component template every student starts
// from: juz 30 surahs grouped by the academic milestone they unlock.
var curriculum = []struct {
	name  string
	label string
}{
	{"An-Naba", "KP"},
	{"An-Nazi'at", "KP"},
	{"'Abasa", "KP"},
	{"At-Takwir", "KP"},
	{"Al-Infitar", "SEMKP"},
	{"Al-Mutaffifin", "SEMKP"},
	{"Al-Insyiqaq", "DAFTAR_TA"},
	{"Al-Buruj", "DAFTAR_TA"},
	{"At-Tariq", "SEMPRO"},
	{"Al-A'la", "SEMPRO"},
	{"Al-Gasyiyah", "SIDANG_TA"},
	{"Al-Fajr", "SIDANG_TA"},
}

type studentState struct {
	info       model.StudentInfo
	components []model.SubmissionComponent
	log        []json.RawMessage
}

// Store holds the sandbox's fixture state: one advisor and their
// advisees. All mutations recompute the server-owned progress counts.
type Store struct {
	mu       sync.Mutex
	advisor  model.Advisor
	students map[string]*studentState
	order    []string // NIMs in roster order
}

// NewStore seeds an advisor with a small roster.
func NewStore(advisor model.Advisor) *Store {
	s := &Store{
		advisor:  advisor,
		students: make(map[string]*studentState),
	}

	roster := []struct {
		nim, name, cohort string
		semester          int
	}{
		{"12050001", "Ahmad Kurniawan", "2020", 8},
		{"12050002", "Siti Rahmawati", "2020", 8},
		{"12150011", "Budi Santoso", "2021", 6},
	}
	for _, r := range roster {
		components := make([]model.SubmissionComponent, len(curriculum))
		for idx, cc := range curriculum {
			components[idx] = model.SubmissionComponent{
				ID:    fmt.Sprintf("%s-%02d", r.nim, idx+1),
				Name:  cc.name,
				Label: cc.label,
			}
		}
		s.students[r.nim] = &studentState{
			info: model.StudentInfo{
				Name:     r.name,
				NIM:      r.nim,
				Email:    fmt.Sprintf("%s@students.uin-suska.ac.id", r.nim),
				Cohort:   r.cohort,
				Semester: r.semester,
				Advisor:  advisor,
			},
			components: components,
			log:        []json.RawMessage{},
		}
		s.order = append(s.order, r.nim)
	}
	return s
}

// Summary builds the advisor dashboard payload.
func (s *Store) Summary() model.AdvisorSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	cohorts := make(map[string]int)
	students := make([]model.StudentRecord, 0, len(s.order))
	for _, nim := range s.order {
		st := s.students[nim]
		cohorts[st.info.Cohort]++
		students = append(students, model.StudentRecord{
			Email:    st.info.Email,
			NIM:      st.info.NIM,
			Name:     st.info.Name,
			Cohort:   st.info.Cohort,
			Semester: st.info.Semester,
			// The roster view carries counts only, no component breakdown.
			Progress: progress(st.components),
		})
	}

	counts := make([]model.CohortCount, 0, len(cohorts))
	seen := make(map[string]bool)
	for _, nim := range s.order {
		year := s.students[nim].info.Cohort
		if !seen[year] {
			seen[year] = true
			counts = append(counts, model.CohortCount{Year: year, Total: cohorts[year]})
		}
	}

	return model.AdvisorSummary{
		NIP:      s.advisor.NIP,
		Name:     s.advisor.Name,
		Email:    s.advisor.Email,
		Advisees: model.AdviseeInfo{CohortCounts: counts, Students: students},
	}
}

// Detail returns one student's full submission state.
func (s *Store) Detail(nim string) (*model.StudentDetail, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[nim]
	if !ok {
		return nil, false
	}
	detail := &model.StudentDetail{
		Info: st.info,
		Submission: model.SubmissionSheet{
			Log:        append([]json.RawMessage{}, st.log...),
			Summary:    progress(st.components),
			Breakdown:  []json.RawMessage{},
			Components: append([]model.SubmissionComponent{}, st.components...),
		},
	}
	return detail, true
}

// Submit marks the given components completed, validated by the advisor.
// The server owns conflict resolution: re-submitting a completed component
// simply re-stamps its evidence.
func (s *Store) Submit(nim string, items []model.SubmissionItem, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[nim]
	if !ok {
		return fmt.Errorf("mahasiswa dengan NIM %s tidak ditemukan", nim)
	}

	today := time.Now().Format("2006-01-02")
	if date == "" {
		date = today
	}
	for _, item := range items {
		idx := componentIndex(st.components, item.ComponentID)
		if idx < 0 {
			return fmt.Errorf("komponen setoran %s tidak ditemukan", item.ComponentID)
		}
		st.components[idx].Completed = true
		st.components[idx].Evidence = &model.SubmissionEvidence{
			ID:          uuid.New().String(),
			SubmittedAt: date,
			ValidatedAt: today,
			ValidatedBy: s.advisor,
		}
		st.appendLog("setoran", st.components[idx].Name, date)
	}
	return nil
}

// Withdraw reverses completion for the given components.
func (s *Store) Withdraw(nim string, items []model.SubmissionItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.students[nim]
	if !ok {
		return fmt.Errorf("mahasiswa dengan NIM %s tidak ditemukan", nim)
	}

	for _, item := range items {
		idx := componentIndex(st.components, item.ComponentID)
		if idx < 0 {
			return fmt.Errorf("komponen setoran %s tidak ditemukan", item.ComponentID)
		}
		if !st.components[idx].Completed {
			return fmt.Errorf("komponen %s belum disetor", st.components[idx].Name)
		}
		st.components[idx].Completed = false
		st.components[idx].Evidence = nil
		st.appendLog("pembatalan", st.components[idx].Name, time.Now().Format("2006-01-02"))
	}
	return nil
}

func (st *studentState) appendLog(activity, component, date string) {
	entry, err := json.Marshal(map[string]string{
		"aktivitas": activity,
		"komponen":  component,
		"tanggal":   date,
	})
	if err != nil {
		return
	}
	st.log = append(st.log, entry)
}

func componentIndex(components []model.SubmissionComponent, id string) int {
	for i := range components {
		if components[i].ID == id {
			return i
		}
	}
	return -1
}

// progress computes the server-owned counters from component state.
func progress(components []model.SubmissionComponent) model.SubmissionProgress {
	completed := 0
	var lastDate *string
	for _, comp := range components {
		if comp.Completed {
			completed++
			if comp.Evidence != nil {
				if lastDate == nil || comp.Evidence.SubmittedAt > *lastDate {
					d := comp.Evidence.SubmittedAt
					lastDate = &d
				}
			}
		}
	}

	required := len(components)
	percent := 0.0
	if required > 0 {
		percent = math.Round(float64(completed)/float64(required)*1000) / 10
	}

	last := "Belum ada setoran"
	if lastDate != nil {
		last = relativeDay(*lastDate)
	}

	return model.SubmissionProgress{
		Required:           required,
		Completed:          completed,
		Pending:            required - completed,
		Percent:            percent,
		LastSubmissionDate: lastDate,
		LastSubmission:     last,
	}
}

// relativeDay renders a date as the backend's Indonesian "n days ago".
func relativeDay(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	days := int(time.Since(parsed).Hours() / 24)
	switch {
	case days <= 0:
		return "Hari ini"
	case days == 1:
		return "Kemarin"
	default:
		return fmt.Sprintf("%d hari yang lalu", days)
	}
}
