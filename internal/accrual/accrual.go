package accrual

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kstolbov/pointsledger/internal/config"
	"github.com/kstolbov/pointsledger/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kstolbov/pointsledger/pkg/clients"
)

const (
	maxRetries    = 3
	retryInterval = time.Second * 1
)

var processingCredits sync.Map

// Credit is one pending accrual reported by the campaign engine.
type Credit struct {
	UserID    int    `json:"user_id"`
	Points    int    `json:"points"`
	Reference string `json:"reference"`
}

// Ledger is the crediting surface of the ledger service. All balance
// mutations go through it; the poller never touches the store directly.
type Ledger interface {
	Earn(ctx context.Context, userID int, amount int, orderRef string) (*domain.LoyaltyAccount, error)
}

// Service polls the external campaign engine for pending point credits and
// applies them to the ledger, acking each credit after it is committed.
type Service struct {
	url            string
	ledger         Ledger
	client         clients.HTTPClientI
	limit          uint32
	workerPool     WorkerPoolI
	updateInterval time.Duration
}

func New(cfg *config.Config, ledger Ledger, client clients.HTTPClientI) *Service {
	return &Service{
		url:            cfg.CampaignAddress,
		ledger:         ledger,
		client:         client,
		limit:          1000,
		workerPool:     NewWorkerPool(10),
		updateInterval: time.Second * 5,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Campaign accrual service started")
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping campaign accrual service")
			return
		case <-ticker.C:
			s.processCredits(ctx)
		}
	}
}

func (s *Service) processCredits(ctx context.Context) {
	credits, err := s.fetchPending(ctx)
	if err != nil {
		zap.L().Error("Failed to fetch pending credits", zap.Error(err))
		return
	}

	var g errgroup.Group
	for _, credit := range credits {
		credit := credit

		if _, loaded := processingCredits.LoadOrStore(credit.Reference, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer processingCredits.Delete(credit.Reference)
				return s.handleCredit(ctx, credit)
			})
			if err != nil {
				processingCredits.Delete(credit.Reference)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error processing credits", zap.Error(err))
	}
}

func (s *Service) fetchPending(ctx context.Context) ([]Credit, error) {
	url := s.url + "/api/credits/pending?limit=" + strconv.Itoa(int(atomic.LoadUint32(&s.limit)))

	var statusCode int
	var respBody []byte

	for attempt := 1; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
			var err error
			statusCode, respBody, _, err = s.client.Get(url, nil)
			if err != nil {
				if attempt < maxRetries {
					time.Sleep(retryInterval * time.Duration(attempt))
					continue
				}
				return nil, fmt.Errorf("failed to fetch pending credits after %d retries: %w", maxRetries, err)
			}

			switch statusCode {
			case http.StatusOK:
				var credits []Credit
				if err := json.Unmarshal(respBody, &credits); err != nil {
					return nil, fmt.Errorf("failed to parse pending credits: %w", err)
				}
				return credits, nil
			case http.StatusNoContent:
				return nil, nil
			default:
				zap.L().Error("Unexpected status code from campaign engine", zap.Int("status", statusCode))
				return nil, errors.New("unexpected status code")
			}
		}
	}
	return nil, nil
}

func (s *Service) handleCredit(ctx context.Context, credit Credit) error {
	if credit.Points <= 0 {
		zap.L().Warn("Skipping non-positive credit", zap.String("reference", credit.Reference), zap.Int("points", credit.Points))
		return nil
	}

	if _, err := s.ledger.Earn(ctx, credit.UserID, credit.Points, credit.Reference); err != nil {
		return fmt.Errorf("failed to credit %d points to user %d: %w", credit.Points, credit.UserID, err)
	}

	if err := s.ackCredit(ctx, credit); err != nil {
		// Already committed: the engine will offer the credit again and the
		// reference lets the operator reconcile duplicates.
		zap.L().Error("Failed to ack credit", zap.String("reference", credit.Reference), zap.Error(err))
	}
	return nil
}

func (s *Service) ackCredit(ctx context.Context, credit Credit) error {
	body, err := json.Marshal(map[string]string{"reference": credit.Reference})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url+"/api/credits/ack", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected ack status code: %d", resp.StatusCode)
	}
	return nil
}
