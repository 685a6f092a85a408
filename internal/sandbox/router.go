package sandbox

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/config"
)

// APIPrefix is where the backend API is mounted, mirroring the real
// deployment's base path so the client's SETORAN_API_URL works unchanged.
const APIPrefix = "/setoran-dev/v1"

// SetupRouter assembles the sandbox: identity-provider endpoints at the
// root, the setoran API under APIPrefix.
func SetupRouter(cfg *config.Config, identity *Identity, api *API, log zerolog.Logger) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// CORS: restrict when configured, allow-all for local dev.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// ─── Identity provider ─────────────────────────────────────────────
	oidc := router.Group("/realms/:realm/protocol/openid-connect")
	{
		oidc.POST("/token", identity.Token)
		oidc.POST("/logout", identity.Logout)
	}

	// ─── Setoran backend ───────────────────────────────────────────────
	v1 := router.Group(APIPrefix)
	v1.Use(RequireAdvisor(identity))
	{
		v1.GET("/dosen/pa-saya", api.AdvisorSummary)
		v1.GET("/mahasiswa/setoran/:nim", api.StudentDetail)
		v1.POST("/mahasiswa/setoran/:nim", api.Submit)
		v1.DELETE("/mahasiswa/setoran/:nim", api.Withdraw)
	}

	return router
}
