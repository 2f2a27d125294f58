package oracle

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
	"github.com/teleport-bridge/teleportd/internal/core/domain"
	"github.com/teleport-bridge/teleportd/internal/core/ports"
)

const (
	// lender-side borrows expire after 24 h, renew a little early
	maxBorrowAge     = 23*time.Hour + 30*time.Minute
	guardDisableFor  = time.Hour
	resourceCoolDown = 24 * time.Hour

	borrowTimeoutCheckInterval = 30 * time.Minute
)

// ResourceGuardConfig wires the guard keeping the oracle account funded with
// metered compute capacity.
type ResourceGuardConfig struct {
	Lender       ports.ResourceLender
	Notifier     ports.Notifier
	Resources    []string     // metered resources to keep funded
	MinAvailable int64        // borrow once available drops below this
	Payment      domain.Asset // per-borrow payment
	DailyCap     domain.Asset // max spend per calendar day
	Now          func() time.Time
}

// ResourceGuard buys metered capacity from a lender while keeping the spend
// under a daily budget. All methods are safe for concurrent use.
type ResourceGuard struct {
	mu  sync.Mutex
	cfg ResourceGuardConfig

	spentToday    *big.Int
	day           string
	lastBorrow    map[string]time.Time
	disabledUntil time.Time
	coolDownUntil time.Time
}

func NewResourceGuard(cfg ResourceGuardConfig) (*ResourceGuard, error) {
	if cfg.Lender == nil {
		return nil, errors.New("missing resource lender")
	}
	if len(cfg.Resources) == 0 {
		return nil, errors.New("missing resources to guard")
	}
	if !cfg.Payment.SameSymbol(cfg.DailyCap) {
		return nil, errors.New("payment and daily cap symbols differ")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ResourceGuard{
		cfg:        cfg,
		spentToday: new(big.Int),
		day:        cfg.Now().Format("2006-01-02"),
		lastBorrow: make(map[string]time.Time),
	}, nil
}

// Check tops up every resource whose available capacity dropped below the
// configured minimum. A lender quoting zero maximum capacity means the
// account cannot be billed at all right now, which puts the guard into a
// 24 h cool-down.
func (g *ResourceGuard) Check(ctx context.Context) error {
	if g.disabled() {
		return nil
	}
	for _, resource := range g.cfg.Resources {
		capacity, err := g.cfg.Lender.Capacity(ctx, resource)
		if err != nil {
			return fmt.Errorf("failed to read %s capacity: %s", resource, err)
		}
		if capacity.Max == 0 {
			g.mu.Lock()
			g.coolDownUntil = g.cfg.Now().Add(resourceCoolDown)
			g.mu.Unlock()
			g.notifyError(ctx, fmt.Sprintf(
				"lender quotes zero %s capacity, cooling down for 24h", resource,
			))
			return nil
		}
		if capacity.Available >= g.cfg.MinAvailable {
			continue
		}
		if err := g.Borrow(ctx, resource); err != nil {
			return err
		}
	}
	return nil
}

// Borrow pays the lender for more capacity and accounts the real cost from
// the balance delta. Once the daily cap is reached it only notifies.
func (g *ResourceGuard) Borrow(ctx context.Context, resource string) error {
	g.mu.Lock()
	g.rollover()
	capped := g.spentToday.Cmp(g.cfg.DailyCap.Amount) >= 0
	g.mu.Unlock()
	if capped {
		g.notifyError(ctx, fmt.Sprintf(
			"daily resource budget of %s exhausted, not borrowing %s",
			g.cfg.DailyCap, resource,
		))
		return nil
	}

	before, err := g.cfg.Lender.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read balance: %s", err)
	}
	if err := g.cfg.Lender.Borrow(ctx, resource, g.cfg.Payment.Clone()); err != nil {
		return fmt.Errorf("failed to borrow %s: %s", resource, err)
	}
	after, err := g.cfg.Lender.Balance(ctx)
	if err != nil {
		return fmt.Errorf("failed to read balance: %s", err)
	}

	spent := new(big.Int).Sub(before.Amount, after.Amount)
	// a negative or implausibly large delta means another transfer raced the
	// measurement, charge the configured payment instead of trusting it
	if spent.Sign() < 0 || spent.Cmp(g.cfg.DailyCap.Amount) > 0 {
		spent = new(big.Int).Set(g.cfg.Payment.Amount)
	}

	g.mu.Lock()
	g.spentToday.Add(g.spentToday, spent)
	g.lastBorrow[resource] = g.cfg.Now()
	total := domain.NewAsset(new(big.Int).Set(g.spentToday), g.cfg.DailyCap.Symbol)
	g.mu.Unlock()

	cost := domain.NewAsset(spent, g.cfg.DailyCap.Symbol)
	g.notifyCost(ctx, fmt.Sprintf(
		"borrowed %s for %s, spent today: %s", resource, cost, total,
	))
	return nil
}

// CheckBorrowTimeout renews borrows nearing the lender's expiry. After a
// renewal fails, the guard pauses itself for an hour so the scheduler does
// not hammer a broken lender.
func (g *ResourceGuard) CheckBorrowTimeout(ctx context.Context) error {
	if g.disabled() {
		return nil
	}
	now := g.cfg.Now()
	for _, resource := range g.cfg.Resources {
		g.mu.Lock()
		last, ok := g.lastBorrow[resource]
		g.mu.Unlock()
		if ok && now.Sub(last) < maxBorrowAge {
			continue
		}
		if err := g.Borrow(ctx, resource); err != nil {
			g.mu.Lock()
			g.disabledUntil = now.Add(guardDisableFor)
			g.mu.Unlock()
			g.notifyError(ctx, fmt.Sprintf(
				"failed to renew %s borrow, pausing resource guard: %s",
				resource, err,
			))
			return err
		}
	}
	return nil
}

// HandleResourceExceeded tops up every guarded resource so the ledger client
// can retry a metered-capacity rejection.
func (g *ResourceGuard) HandleResourceExceeded(ctx context.Context) error {
	for _, resource := range g.cfg.Resources {
		if err := g.Borrow(ctx, resource); err != nil {
			return err
		}
	}
	return nil
}

// CoolingDown reports whether the lender declared the account unbillable
// recently. Watchers skip their cycles while this holds.
func (g *ResourceGuard) CoolingDown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Now().Before(g.coolDownUntil)
}

// Schedule registers the periodic capacity check and borrow renewal on the
// given scheduler.
func (g *ResourceGuard) Schedule(
	scheduler *gocron.Scheduler, checkInterval time.Duration,
) error {
	if _, err := scheduler.Every(checkInterval).Do(func() {
		if err := g.Check(context.Background()); err != nil {
			log.WithError(err).Warn("resource check failed")
		}
	}); err != nil {
		return err
	}
	_, err := scheduler.Every(borrowTimeoutCheckInterval).Do(func() {
		if err := g.CheckBorrowTimeout(context.Background()); err != nil {
			log.WithError(err).Warn("borrow renewal failed")
		}
	})
	return err
}

func (g *ResourceGuard) disabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cfg.Now().Before(g.disabledUntil)
}

// rollover resets the daily accounting when the calendar day changes.
// The caller holds the lock.
func (g *ResourceGuard) rollover() {
	day := g.cfg.Now().Format("2006-01-02")
	if day != g.day {
		g.day = day
		g.spentToday = new(big.Int)
	}
}

func (g *ResourceGuard) notifyError(ctx context.Context, text string) {
	if g.cfg.Notifier == nil {
		return
	}
	if err := g.cfg.Notifier.NotifyError(ctx, text); err != nil {
		log.WithError(err).Warn("failed to send notification")
	}
}

func (g *ResourceGuard) notifyCost(ctx context.Context, text string) {
	if g.cfg.Notifier == nil {
		return
	}
	if err := g.cfg.Notifier.NotifyCost(ctx, text); err != nil {
		log.WithError(err).Warn("failed to send notification")
	}
}
