package service

import (
	"context"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
)

type StatisticsService interface {
	GetSpendStatistics(ctx context.Context, orgID uuid.UUID, startDate, endDate time.Time) (model.SpendStatisticsResponse, error)
}

type statisticsService struct {
	repo repository.StatisticsRepository
}

func NewStatisticsService(repo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{repo: repo}
}

// GetSpendStatistics aggregates issued-order spend, open demand, and supplier
// rankings for the org over the given time range.
func (s *statisticsService) GetSpendStatistics(ctx context.Context, orgID uuid.UUID, startDate, endDate time.Time) (model.SpendStatisticsResponse, error) {
	response := model.SpendStatisticsResponse{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	value, count, err := s.repo.GetOrderSpend(ctx, orgID, model.POStatusIssued, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.TotalOrderedValue = value
	response.IssuedOrderCount = count

	openPRs, err := s.repo.CountRequisitionsInStatus(ctx, orgID, []string{model.PRStatusCreated, model.PRStatusInProcess, model.PRStatusProcessed})
	if err != nil {
		return response, err
	}
	response.OpenRequisitionCount = openPRs

	exceptions, err := s.repo.CountExceptionNotices(ctx, orgID, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.ExceptionCount = exceptions

	topVendors, err := s.repo.GetTopVendors(ctx, orgID, model.POStatusIssued, startDate, endDate, 5)
	if err != nil {
		return response, err
	}
	response.TopVendors = topVendors

	topMaterials, err := s.repo.GetTopMaterials(ctx, orgID, model.POStatusIssued, startDate, endDate, 5)
	if err != nil {
		return response, err
	}
	response.TopMaterials = topMaterials

	return response, nil
}
