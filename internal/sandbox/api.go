package sandbox

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/model"
	"github.com/setorandev/setoran-client/internal/validator"
)

// API serves the setoran backend endpoints against the fixture store.
type API struct {
	store *Store
	log   zerolog.Logger
}

// NewAPI creates the backend endpoint handlers.
func NewAPI(store *Store, log zerolog.Logger) *API {
	return &API{store: store, log: log.With().Str("component", "api").Logger()}
}

// AdvisorSummary handles GET /dosen/pa-saya.
func (a *API) AdvisorSummary(c *gin.Context) {
	ok(c, "Data dosen PA berhasil diambil", a.store.Summary())
}

// StudentDetail handles GET /mahasiswa/setoran/{nim}.
func (a *API) StudentDetail(c *gin.Context) {
	nim := c.Param("nim")
	detail, found := a.store.Detail(nim)
	if !found {
		fail(c, http.StatusNotFound, "Mahasiswa dengan NIM "+nim+" tidak ditemukan")
		return
	}
	ok(c, "Data setoran mahasiswa berhasil diambil", detail)
}

// Submit handles POST /mahasiswa/setoran/{nim}.
func (a *API) Submit(c *gin.Context) {
	var req model.SubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		fail(c, http.StatusBadRequest, fieldSummary(fields))
		return
	}

	nim := c.Param("nim")
	if err := a.store.Submit(nim, req.Items, req.Date); err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	a.log.Info().Str("nim", nim).Int("components", len(req.Items)).Msg("Submission recorded")
	ok(c, "Setoran berhasil disimpan", nil)
}

// Withdraw handles DELETE /mahasiswa/setoran/{nim}.
func (a *API) Withdraw(c *gin.Context) {
	var req model.SubmissionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		fail(c, http.StatusBadRequest, fieldSummary(fields))
		return
	}

	nim := c.Param("nim")
	if err := a.store.Withdraw(nim, req.Items); err != nil {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	a.log.Info().Str("nim", nim).Int("components", len(req.Items)).Msg("Submission withdrawn")
	ok(c, "Setoran berhasil dihapus", nil)
}

// ok writes the backend's success envelope.
func ok(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"response": true,
		"message":  message,
		"data":     data,
	})
}

// fail writes the backend's failure envelope.
func fail(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"response": false,
		"message":  message,
		"data":     nil,
	})
}

func fieldSummary(fields map[string]string) string {
	parts := make([]string, 0, len(fields))
	for field, msg := range fields {
		parts = append(parts, field+": "+msg)
	}
	return "Payload tidak valid: " + strings.Join(parts, "; ")
}
