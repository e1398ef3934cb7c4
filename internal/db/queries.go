package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries is the hand-written data access layer shared by the services.
type Queries struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

type User struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
	CreatedAt   time.Time
}

type Dataset struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type DatasetImage struct {
	ID          string
	DatasetID   string
	Path        string
	PreviewURL  string
	Name        string
	Width       int
	Height      int
	Annotations json.RawMessage
	CreatedAt   time.Time
}

type AnnotationSnapshot struct {
	ID          string
	ImageID     string
	Version     int32
	Annotations json.RawMessage
	CreatedAt   time.Time
}

// --- users ---

type CreateUserParams struct {
	ID          string
	Email       string
	Password    string
	DisplayName string
}

func (q *Queries) CreateUser(ctx context.Context, p CreateUserParams) (User, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password, display_name)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, email, password, display_name, created_at`,
		p.ID, p.Email, p.Password, p.DisplayName)

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE email = $1`,
		email)

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

func (q *Queries) GetUserByID(ctx context.Context, id string) (User, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, email, password, display_name, created_at FROM users WHERE id = $1`,
		id)

	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.DisplayName, &u.CreatedAt)
	return u, err
}

// --- datasets ---

type CreateDatasetParams struct {
	ID      string
	Name    string
	OwnerID string
}

func (q *Queries) CreateDataset(ctx context.Context, p CreateDatasetParams) (Dataset, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO datasets (id, name, owner_id)
		 VALUES ($1, $2, $3)
		 RETURNING id, name, owner_id, created_at, updated_at`,
		p.ID, p.Name, p.OwnerID)

	var d Dataset
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) GetDataset(ctx context.Context, id string) (Dataset, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, name, owner_id, created_at, updated_at FROM datasets WHERE id = $1`,
		id)

	var d Dataset
	err := row.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (q *Queries) ListDatasetsForUser(ctx context.Context, ownerID string) ([]Dataset, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		 FROM datasets WHERE owner_id = $1 ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []Dataset
	for rows.Next() {
		var d Dataset
		if err := rows.Scan(&d.ID, &d.Name, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		datasets = append(datasets, d)
	}
	return datasets, rows.Err()
}

func (q *Queries) DeleteDataset(ctx context.Context, id string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM datasets WHERE id = $1`, id)
	return err
}

// --- dataset images ---

type CreateImageParams struct {
	ID          string
	DatasetID   string
	Path        string
	PreviewURL  string
	Name        string
	Width       int
	Height      int
	Annotations json.RawMessage
}

func (q *Queries) CreateImage(ctx context.Context, p CreateImageParams) (DatasetImage, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO dataset_images (id, dataset_id, path, preview_url, name, width, height, annotations)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, dataset_id, path, preview_url, name, width, height, annotations, created_at`,
		p.ID, p.DatasetID, p.Path, p.PreviewURL, p.Name, p.Width, p.Height, p.Annotations)

	var img DatasetImage
	err := row.Scan(&img.ID, &img.DatasetID, &img.Path, &img.PreviewURL, &img.Name,
		&img.Width, &img.Height, &img.Annotations, &img.CreatedAt)
	return img, err
}

func (q *Queries) GetImage(ctx context.Context, id string) (DatasetImage, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, dataset_id, path, preview_url, name, width, height, annotations, created_at
		 FROM dataset_images WHERE id = $1`,
		id)

	var img DatasetImage
	err := row.Scan(&img.ID, &img.DatasetID, &img.Path, &img.PreviewURL, &img.Name,
		&img.Width, &img.Height, &img.Annotations, &img.CreatedAt)
	return img, err
}

func (q *Queries) ListImages(ctx context.Context, datasetID string) ([]DatasetImage, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT id, dataset_id, path, preview_url, name, width, height, annotations, created_at
		 FROM dataset_images WHERE dataset_id = $1 ORDER BY name`,
		datasetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []DatasetImage
	for rows.Next() {
		var img DatasetImage
		if err := rows.Scan(&img.ID, &img.DatasetID, &img.Path, &img.PreviewURL, &img.Name,
			&img.Width, &img.Height, &img.Annotations, &img.CreatedAt); err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// --- annotation snapshots ---

type CreateSnapshotParams struct {
	ID          string
	ImageID     string
	Version     int32
	Annotations json.RawMessage
}

func (q *Queries) CreateSnapshot(ctx context.Context, p CreateSnapshotParams) (AnnotationSnapshot, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO annotation_snapshots (id, image_id, version, annotations)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, image_id, version, annotations, created_at`,
		p.ID, p.ImageID, p.Version, p.Annotations)

	var s AnnotationSnapshot
	err := row.Scan(&s.ID, &s.ImageID, &s.Version, &s.Annotations, &s.CreatedAt)
	return s, err
}

func (q *Queries) GetLatestSnapshot(ctx context.Context, imageID string) (AnnotationSnapshot, error) {
	row := q.pool.QueryRow(ctx,
		`SELECT id, image_id, version, annotations, created_at
		 FROM annotation_snapshots WHERE image_id = $1
		 ORDER BY version DESC LIMIT 1`,
		imageID)

	var s AnnotationSnapshot
	err := row.Scan(&s.ID, &s.ImageID, &s.Version, &s.Annotations, &s.CreatedAt)
	return s, err
}
