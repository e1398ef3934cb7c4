package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pixelmark/pixelmark/backend-go/internal/annotation"
	"github.com/pixelmark/pixelmark/backend-go/internal/db"
	"github.com/pixelmark/pixelmark/backend-go/internal/typeid"
)

var (
	ErrNotFound  = errors.New("dataset not found")
	ErrForbidden = errors.New("forbidden")
)

type Service struct {
	queries *db.Queries
}

func NewService(queries *db.Queries) *Service {
	return &Service{queries: queries}
}

type Dataset struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	OwnerID   string `json:"ownerId"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type Image struct {
	ID              string `json:"id"`
	DatasetID       string `json:"datasetId"`
	Path            string `json:"path"`
	PreviewURL      string `json:"previewUrl"`
	Name            string `json:"name"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`
	AnnotationCount int    `json:"annotationCount"`
	CreatedAt       string `json:"createdAt"`
}

func (s *Service) Create(ctx context.Context, name, ownerID string) (*Dataset, error) {
	dbDataset, err := s.queries.CreateDataset(ctx, db.CreateDatasetParams{
		ID:      typeid.NewDatasetID(),
		Name:    name,
		OwnerID: ownerID,
	})
	if err != nil {
		return nil, fmt.Errorf("create dataset: %w", err)
	}
	return dbDatasetToDataset(dbDataset), nil
}

func (s *Service) Get(ctx context.Context, datasetID, userID string) (*Dataset, error) {
	dbDataset, err := s.checkOwnership(ctx, datasetID, userID)
	if err != nil {
		return nil, err
	}
	return dbDatasetToDataset(dbDataset), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Dataset, error) {
	dbDatasets, err := s.queries.ListDatasetsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	datasets := make([]Dataset, len(dbDatasets))
	for i, d := range dbDatasets {
		datasets[i] = *dbDatasetToDataset(d)
	}
	return datasets, nil
}

func (s *Service) Delete(ctx context.Context, datasetID, userID string) error {
	if _, err := s.checkOwnership(ctx, datasetID, userID); err != nil {
		return err
	}
	return s.queries.DeleteDataset(ctx, datasetID)
}

// AddImageParams describes one image already parsed by the upstream scanner:
// the annotation list arrives structured, never as a raw annotation file.
type AddImageParams struct {
	Path        string                  `json:"path"`
	PreviewURL  string                  `json:"previewUrl"`
	Name        string                  `json:"name"`
	Width       int                     `json:"width"`
	Height      int                     `json:"height"`
	Annotations []annotation.Annotation `json:"annotations"`
}

func (s *Service) AddImage(ctx context.Context, datasetID, userID string, p AddImageParams) (*Image, error) {
	if _, err := s.checkOwnership(ctx, datasetID, userID); err != nil {
		return nil, err
	}

	annotationsJSON, err := json.Marshal(p.Annotations)
	if err != nil {
		return nil, fmt.Errorf("marshal annotations: %w", err)
	}

	dbImage, err := s.queries.CreateImage(ctx, db.CreateImageParams{
		ID:          typeid.NewImageID(),
		DatasetID:   datasetID,
		Path:        p.Path,
		PreviewURL:  p.PreviewURL,
		Name:        p.Name,
		Width:       p.Width,
		Height:      p.Height,
		Annotations: annotationsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}

	return dbImageToImage(dbImage), nil
}

func (s *Service) ListImages(ctx context.Context, datasetID, userID string) ([]Image, error) {
	if _, err := s.checkOwnership(ctx, datasetID, userID); err != nil {
		return nil, err
	}

	dbImages, err := s.queries.ListImages(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	images := make([]Image, len(dbImages))
	for i, img := range dbImages {
		images[i] = *dbImageToImage(img)
	}
	return images, nil
}

// ImageContext assembles the engine input for one image. The latest saved
// annotation snapshot wins over the originally registered annotation list.
func (s *Service) ImageContext(ctx context.Context, imageID string) (*annotation.ImageContext, error) {
	dbImage, err := s.queries.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}

	annotationsJSON := dbImage.Annotations
	snap, err := s.queries.GetLatestSnapshot(ctx, imageID)
	if err == nil {
		annotationsJSON = snap.Annotations
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}

	var annotations []annotation.Annotation
	if err := json.Unmarshal(annotationsJSON, &annotations); err != nil {
		return nil, fmt.Errorf("unmarshal annotations: %w", err)
	}

	return &annotation.ImageContext{
		ID:          dbImage.ID,
		Path:        dbImage.Path,
		PreviewURL:  dbImage.PreviewURL,
		Name:        dbImage.Name,
		Annotations: annotations,
	}, nil
}

// ImageDimensions returns the registered natural pixel dimensions, used by
// viewer sessions so the engine does not re-decode the preview.
func (s *Service) ImageDimensions(ctx context.Context, imageID string) (int, int, error) {
	dbImage, err := s.queries.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, fmt.Errorf("get image: %w", err)
	}
	return dbImage.Width, dbImage.Height, nil
}

// CheckImageAccess verifies the user owns the dataset the image belongs to.
// Used by the websocket endpoint before a viewer session is created.
func (s *Service) CheckImageAccess(ctx context.Context, imageID, userID string) error {
	dbImage, err := s.queries.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("get image: %w", err)
	}
	_, err = s.checkOwnership(ctx, dbImage.DatasetID, userID)
	return err
}

// SaveSnapshot persists one engine save event as the next snapshot version.
func (s *Service) SaveSnapshot(ctx context.Context, imageID string, annotations []annotation.Annotation) (int32, error) {
	annotationsJSON, err := json.Marshal(annotations)
	if err != nil {
		return 0, fmt.Errorf("marshal annotations: %w", err)
	}

	nextVersion := int32(1)
	current, err := s.queries.GetLatestSnapshot(ctx, imageID)
	if err == nil {
		nextVersion = current.Version + 1
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("get snapshot: %w", err)
	}

	_, err = s.queries.CreateSnapshot(ctx, db.CreateSnapshotParams{
		ID:          typeid.NewSnapshotID(),
		ImageID:     imageID,
		Version:     nextVersion,
		Annotations: annotationsJSON,
	})
	if err != nil {
		return 0, fmt.Errorf("create snapshot: %w", err)
	}

	return nextVersion, nil
}

func (s *Service) GetLatestSnapshot(ctx context.Context, imageID, userID string) (json.RawMessage, error) {
	dbImage, err := s.queries.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	if _, err := s.checkOwnership(ctx, dbImage.DatasetID, userID); err != nil {
		return nil, err
	}

	snap, err := s.queries.GetLatestSnapshot(ctx, imageID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return snap.Annotations, nil
}

func (s *Service) checkOwnership(ctx context.Context, datasetID, userID string) (db.Dataset, error) {
	dbDataset, err := s.queries.GetDataset(ctx, datasetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Dataset{}, ErrNotFound
		}
		return db.Dataset{}, fmt.Errorf("get dataset: %w", err)
	}
	if dbDataset.OwnerID != userID {
		return db.Dataset{}, ErrForbidden
	}
	return dbDataset, nil
}

func dbDatasetToDataset(d db.Dataset) *Dataset {
	return &Dataset{
		ID:        d.ID,
		Name:      d.Name,
		OwnerID:   d.OwnerID,
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
}

func dbImageToImage(img db.DatasetImage) *Image {
	var annotations []annotation.Annotation
	_ = json.Unmarshal(img.Annotations, &annotations)

	return &Image{
		ID:              img.ID,
		DatasetID:       img.DatasetID,
		Path:            img.Path,
		PreviewURL:      img.PreviewURL,
		Name:            img.Name,
		Width:           img.Width,
		Height:          img.Height,
		AnnotationCount: len(annotations),
		CreatedAt:       img.CreatedAt.Format(time.RFC3339),
	}
}
