package scanner

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dapplion/consolidation-incentives-go/beaconclient"
)

// Config controls the scanner's beacon node and polling cadence.
type Config struct {
	BeaconURL     string
	PollInterval  time.Duration
	SlotsPerEpoch uint64
}

// DefaultConfig matches the original service's defaults.
func DefaultConfig() Config {
	return Config{
		BeaconURL:     "http://localhost:5052",
		PollInterval:  5 * time.Second,
		SlotsPerEpoch: 16,
	}
}

// Scanner polls a beacon node for newly finalized pending consolidations
// and records them in a Store.
type Scanner struct {
	config Config
	client *beaconclient.Client
	store  *Store
	log    *logrus.Entry

	lastFinalizedEpoch uint64 // accessed via sync/atomic
}

// New builds a Scanner against the given store, using its own beacon
// client constructed from config.BeaconURL.
func New(config Config, store *Store, log *logrus.Entry) *Scanner {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Scanner{
		config: config,
		client: beaconclient.New(config.BeaconURL),
		store:  store,
		log:    log,
	}
}

// Run polls the beacon node at config.PollInterval until ctx is
// cancelled.
func (s *Scanner) Run(ctx context.Context) {
	s.log.Info("starting beacon chain scanner")

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if err := s.pollOnce(); err != nil {
			s.log.WithError(err).Error("scanner poll failed")
			s.store.SetLastError(err.Error())
		} else {
			s.store.SetLastError("")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scanner) pollOnce() error {
	headSlot, err := s.client.GetHeadSlot()
	if err != nil {
		return err
	}
	s.store.SetHeadSlot(headSlot)

	checkpoints, err := s.client.GetFinalityCheckpoints()
	if err != nil {
		return err
	}
	finalizedEpoch := checkpoints.FinalizedEpoch

	finalizedSlot := finalizedEpoch * s.config.SlotsPerEpoch
	s.store.SetCurrentSlot(finalizedSlot)
	s.store.SetCurrentEpoch(finalizedEpoch)

	last := atomic.LoadUint64(&s.lastFinalizedEpoch)
	if finalizedEpoch <= last {
		return nil
	}

	consolidations, err := s.client.GetPendingConsolidations(strconv.FormatUint(finalizedSlot, 10))
	if err != nil {
		return err
	}

	if len(consolidations) == 0 {
		s.log.WithField("epoch", finalizedEpoch).Info("no pending consolidations")
	} else {
		s.log.WithFields(logrus.Fields{
			"epoch": finalizedEpoch,
			"count": len(consolidations),
		}).Info("fetched pending consolidations")
		s.processConsolidations(consolidations, finalizedEpoch)
	}

	atomic.StoreUint64(&s.lastFinalizedEpoch, finalizedEpoch)
	return nil
}

func (s *Scanner) processConsolidations(consolidations []beaconclient.PendingConsolidation, epoch uint64) {
	for _, c := range consolidations {
		if _, tracked := s.store.Get(c.SourceIndex); tracked {
			continue
		}

		s.log.WithFields(logrus.Fields{
			"source": c.SourceIndex,
			"target": c.TargetIndex,
			"epoch":  epoch,
		}).Info("new consolidation detected")

		s.store.Upsert(ConsolidationRecord{
			SourceIndex: c.SourceIndex,
			TargetIndex: c.TargetIndex,
			EpochSeen:   epoch,
			Status:      StatusDetected,
		})
	}
}
