package store

import (
	"context"

	"github.com/amishk599/jobsieve/internal/model"
)

// NopStore is used when no archive path is configured. Runs are not kept.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) SaveRun(context.Context, model.RunSummary, []model.Record) error { return nil }
func (s *NopStore) Close() error                                                    { return nil }
