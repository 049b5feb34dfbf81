package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"casework-backend/internal/metrics"
	"casework-backend/internal/mw"
	"casework-backend/internal/store"
)

// Options carries the optional collaborators of the router. Zero values
// fall back to the defaults noted on each field.
type Options struct {
	WebPush  *webpush.Options // nil disables the VAPID key endpoint
	Notifier Notifier         // nil drops bed events
	Metrics  *metrics.Metrics // nil disables /metrics
	Logger   *zap.Logger
	Location *time.Location // UTC

	RateLimit rate.Limit    // 10 per second
	RateBurst int           // 5
	CacheTTL  time.Duration // 5 minutes
}

func (o *Options) applyDefaults() {
	if o.RateLimit <= 0 {
		o.RateLimit = 10
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 5
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 5 * time.Minute
	}
}

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, opts Options) *gin.Engine {
	opts.applyDefaults()
	r := gin.Default()
	handler := NewHandler(s, opts)

	responses := mw.NewResponseCache(cache.New(opts.CacheTTL, 2*opts.CacheTTL))
	caching := mw.Cache(responses, opts.CacheTTL)

	if opts.Metrics != nil {
		r.GET("/metrics", opts.Metrics.Handler())
	}

	api := r.Group("/api")
	api.Use(mw.RateLimiter(opts.RateLimit, opts.RateBurst), mw.Identity(), mw.Invalidate(responses))
	{
		api.GET("/cases", caching, handler.ListCases)
		api.POST("/cases", handler.CreateCase)
		api.GET("/cases/merge/preview", handler.MergePreview)
		api.POST("/cases/merge", handler.MergeCases)
		api.GET("/cases/:case_id", handler.GetCase)
		api.GET("/cases/:case_id/merges", handler.MergeHistory)
		api.GET("/cases/:case_id/activities", handler.ListActivities)
		api.POST("/cases/:case_id/activities", handler.AddActivity)

		api.GET("/sites", caching, handler.ListSites)
		api.POST("/sites", handler.CreateSite)
		api.GET("/sites/:site_id/beds", caching, handler.ListBeds)
		api.GET("/sites/:site_id/beds/available", handler.AvailableBeds)
		api.POST("/sites/:site_id/beds", handler.CreateBed)

		api.POST("/beds/check-in", handler.CheckIn)
		api.POST("/beds/check-in/edit", handler.EditCheckIn)
		api.POST("/beds/check-out", handler.CheckOut)
		api.GET("/beds/:bed_id", handler.GetBed)
		api.GET("/beds/:bed_id/stays", handler.BedHistory)
		api.POST("/beds/:bed_id/archive", handler.ArchiveBed)
		api.POST("/beds/:bed_id/status", handler.SetBedStatus)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
