package core

import (
	"context"
	"sort"
)

// Download is a rendered export ready to be sent as an attachment.
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AdminService reads back stored members. It performs no authorization;
// guarding it is up to the HTTP layer.
type AdminService struct {
	store  Store
	lister Lister
}

// NewAdminService returns an admin service for store, or false when the
// store cannot list its records.
func NewAdminService(store Store) (*AdminService, bool) {
	lister, ok := store.(Lister)
	if !ok {
		return nil, false
	}
	return &AdminService{store: store, lister: lister}, true
}

// GetAll returns every record, newest first.
func (a *AdminService) GetAll(ctx context.Context) ([]Record, error) {
	records, err := a.lister.List(ctx)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []Record{}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Time.After(records[j].Time)
	})
	return records, nil
}

// Download renders the export workbook.
func (a *AdminService) Download(ctx context.Context) (*Download, error) {
	data, err := a.store.Export(ctx)
	if err != nil {
		return nil, err
	}
	return &Download{
		Filename:    ExportFilename,
		ContentType: XLSXContentType,
		Data:        data,
	}, nil
}
