package sales

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/odyssey-erp/distribusi/internal/shared"
)

// SalesWorkflowTestSuite sells through an outlet's distributed stock.
type SalesWorkflowTestSuite struct {
	suite.Suite
	repo  *memoryRepo
	cache *countingCache
	svc   *Service
	ctx   context.Context
}

func (s *SalesWorkflowTestSuite) SetupTest() {
	s.repo = newMemoryRepo()
	s.cache = &countingCache{}
	s.svc = NewService(s.repo, s.cache, nil, nil)
	s.ctx = context.Background()
}

func (s *SalesWorkflowTestSuite) TestSellOutDistributedStock() {
	day := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := s.svc.RecordSale(s.ctx, SaleInput{OutletID: 1, ProductID: 1, Quantity: 2, SoldAt: day.Add(time.Duration(i) * time.Hour)})
		s.Require().NoError(err)
	}

	_, err := s.svc.RecordSale(s.ctx, SaleInput{OutletID: 1, ProductID: 1, Quantity: 1})
	s.Require().ErrorIs(err, shared.ErrInsufficientOutletStock)
	s.Equal("Stok tidak mencukupi. Tersedia: 0", err.Error())

	balance, err := s.svc.OutletBalance(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("90000.00", balance.StringFixed(2))
	s.Equal(5, s.cache.bumps)
	s.Len(s.repo.audits, 5)
}

func (s *SalesWorkflowTestSuite) TestReplayedKeyIsRejected() {
	input := SaleInput{OutletID: 1, ProductID: 1, Quantity: 1, IdempotencyKey: "kasir-7"}
	_, err := s.svc.RecordSale(s.ctx, input)
	s.Require().NoError(err)

	_, err = s.svc.RecordSale(s.ctx, input)
	s.Require().ErrorIs(err, shared.ErrIdempotencyConflict)
	s.Len(s.repo.sales, 1)
	s.Equal(1, s.cache.bumps)
}

func (s *SalesWorkflowTestSuite) TestOutletsAreIsolated() {
	_, err := s.svc.RecordSale(s.ctx, SaleInput{OutletID: 2, ProductID: 1, Quantity: 3})
	s.Require().NoError(err)

	_, err = s.svc.RecordSale(s.ctx, SaleInput{OutletID: 2, ProductID: 1, Quantity: 1})
	s.Require().ErrorIs(err, shared.ErrInsufficientOutletStock)

	_, err = s.svc.RecordSale(s.ctx, SaleInput{OutletID: 1, ProductID: 1, Quantity: 10})
	s.Require().NoError(err)

	first, err := s.svc.OutletBalance(s.ctx, 1)
	s.Require().NoError(err)
	second, err := s.svc.OutletBalance(s.ctx, 2)
	s.Require().NoError(err)
	s.Equal("90000.00", first.StringFixed(2))
	s.Equal("27000.00", second.StringFixed(2))
}

func TestSalesWorkflowTestSuite(t *testing.T) {
	suite.Run(t, new(SalesWorkflowTestSuite))
}
