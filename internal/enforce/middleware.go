// Package enforce applies detection verdicts to live traffic: recognized
// bots with a block recommendation get 403, rate-limited bots get a
// per-bot token bucket sized from the signature's requests-per-minute
// budget.
package enforce

import (
	"net/http"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shortontech/botmeter/internal/detect"
)

// defaultRPM is used for rate-limited bots whose signature carries no
// explicit budget (generic heuristic matches, mostly).
const defaultRPM = 30

// Enforcer turns detection verdicts into HTTP responses.
type Enforcer struct {
	detector *detect.Detector
	rpmByBot map[string]int
	log      *zap.Logger

	// OnBlock, when set, handles blocked requests instead of the default
	// 403 response.
	OnBlock func(w http.ResponseWriter, r *http.Request, res detect.Result)

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(detector *detect.Detector, log *zap.Logger) *Enforcer {
	rpm := make(map[string]int)
	for _, s := range detector.Signatures() {
		if s.RateLimit > 0 {
			rpm[s.Name] = s.RateLimit
		}
	}
	return &Enforcer{
		detector: detector,
		rpmByBot: rpm,
		log:      log,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Handler wraps next in the enforcement check. It composes with net/http,
// chi, and any router that accepts func(http.Handler) http.Handler.
func (e *Enforcer) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := e.detector.Detect(r.UserAgent())
		if !res.IsBot {
			next.ServeHTTP(w, r)
			return
		}
		switch res.Recommendation {
		case detect.ActionBlock:
			e.log.Info("blocked bot",
				zap.String("bot", res.BotName),
				zap.String("path", r.URL.Path))
			if e.OnBlock != nil {
				e.OnBlock(w, r, res)
				return
			}
			w.WriteHeader(http.StatusForbidden)
		case detect.ActionRateLimit:
			if !e.limiter(res.BotName).Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(e.retryAfterSeconds(res.BotName)))
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func (e *Enforcer) rpm(bot string) int {
	if rpm, ok := e.rpmByBot[bot]; ok {
		return rpm
	}
	return defaultRPM
}

func (e *Enforcer) limiter(bot string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l, ok := e.limiters[bot]; ok {
		return l
	}
	rpm := e.rpm(bot)
	burst := rpm / 6
	if burst < 1 {
		burst = 1
	}
	l := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)
	e.limiters[bot] = l
	return l
}

func (e *Enforcer) retryAfterSeconds(bot string) int {
	rpm := e.rpm(bot)
	secs := 60 / rpm
	if secs < 1 {
		secs = 1
	}
	return secs
}
