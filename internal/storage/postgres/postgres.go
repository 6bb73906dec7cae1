package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"easybuk/internal/config"
	"easybuk/internal/models"
	"easybuk/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg *config.Config) (*PostgresRepo, error) {
	const op = "storage.postgres.New"

	dsn := dsn(cfg)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse config: %w", op, err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = time.Minute * 30

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create pool: %w", op, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s: failed to ping database: %w", op, err)
	}

	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) SaveUser(ctx context.Context, email, username string, passHash []byte, roles []string) (int64, error) {
	const op = "storage.postgres.SaveUser"

	query := `
		INSERT INTO users (email, username, password_hash, roles)
		VALUES ($1, $2, $3, $4)
		RETURNING id;
	`

	var id int64

	err := r.pool.QueryRow(ctx, query, email, username, string(passHash), roles).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, storage.ErrUserExists
		}

		return 0, fmt.Errorf("%s: failed to save user: %w", op, err)
	}

	return id, nil
}

func (r *PostgresRepo) User(ctx context.Context, email string) (models.User, error) {
	query := `
		SELECT id, email, username, password_hash, roles, verified_at, created_at
		FROM users
		WHERE email = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *PostgresRepo) UserByID(ctx context.Context, id int64) (models.User, error) {
	query := `
		SELECT id, email, username, password_hash, roles, verified_at, created_at
		FROM users
		WHERE id = $1;
	`

	return r.scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PassHash,
		&u.Roles,
		&u.VerifiedAt,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, storage.ErrUserNotFound
		}

		return models.User{}, err
	}

	return u, nil
}

func (r *PostgresRepo) SaveVerificationToken(ctx context.Context, token string, userID int64, expiresAt time.Time) error {
	const op = "storage.postgres.SaveVerificationToken"

	query := `
		INSERT INTO verification_tokens (token, user_id, expires_at)
		VALUES ($1, $2, $3);
	`

	if _, err := r.pool.Exec(ctx, query, token, userID, expiresAt); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) VerificationToken(ctx context.Context, token string) (models.VerificationToken, error) {
	query := `
		SELECT token, user_id, used, expires_at, created_at
		FROM verification_tokens
		WHERE token = $1;
	`

	var t models.VerificationToken
	err := r.pool.QueryRow(ctx, query, token).Scan(
		&t.Token,
		&t.UserID,
		&t.Used,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.VerificationToken{}, storage.ErrTokenNotFound
		}

		return models.VerificationToken{}, err
	}

	return t, nil
}

func (r *PostgresRepo) DeleteVerificationToken(ctx context.Context, token string) error {
	query := `DELETE FROM verification_tokens WHERE token = $1`

	_, err := r.pool.Exec(ctx, query, token)

	return err
}

// ConsumeVerificationToken marks the token used and stamps the owning user
// verified inside a single transaction. A concurrent consume of the same
// token loses the race and gets ErrTokenNotFound, which callers surface as
// an already-used token.
func (r *PostgresRepo) ConsumeVerificationToken(ctx context.Context, token string) error {
	const op = "storage.postgres.ConsumeVerificationToken"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	markUsed := `
		UPDATE verification_tokens
		SET used = TRUE
		WHERE token = $1 AND used = FALSE
		RETURNING user_id;
	`

	var userID int64
	if err := tx.QueryRow(ctx, markUsed, token).Scan(&userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storage.ErrTokenNotFound
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	verifyUser := `UPDATE users SET verified_at = NOW() WHERE id = $1 AND verified_at IS NULL`

	if _, err := tx.Exec(ctx, verifyUser, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Notification(ctx context.Context, id int64) (models.Notification, error) {
	query := `
		SELECT id, user_id, title, body, read, created_at
		FROM notifications
		WHERE id = $1;
	`

	return r.scanNotification(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) MarkNotificationRead(ctx context.Context, id int64) (models.Notification, error) {
	query := `
		UPDATE notifications
		SET read = TRUE
		WHERE id = $1
		RETURNING id, user_id, title, body, read, created_at;
	`

	return r.scanNotification(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) scanNotification(row pgx.Row) (models.Notification, error) {
	var n models.Notification
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Title,
		&n.Body,
		&n.Read,
		&n.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Notification{}, storage.ErrNotificationNotFound
		}

		return models.Notification{}, err
	}

	return n, nil
}

func (r *PostgresRepo) MarkAllNotificationsRead(ctx context.Context, userID int64) (int64, error) {
	const op = "storage.postgres.MarkAllNotificationsRead"

	query := `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}

func (r *PostgresRepo) DeleteNotification(ctx context.Context, id int64) error {
	query := `DELETE FROM notifications WHERE id = $1`

	_, err := r.pool.Exec(ctx, query, id)

	return err
}

func (r *PostgresRepo) NotificationsByUser(ctx context.Context, userID int64) ([]models.Notification, error) {
	const op = "storage.postgres.NotificationsByUser"

	query := `
		SELECT id, user_id, title, body, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		notifications = append(notifications, n)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return notifications, nil
}

func (r *PostgresRepo) ProviderService(ctx context.Context, id int64) (models.ProviderService, error) {
	query := `
		SELECT id, provider_id, title, description, status, created_at
		FROM provider_services
		WHERE id = $1;
	`

	return r.scanService(r.pool.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) UpdateServiceStatus(ctx context.Context, id int64, status string) (models.ProviderService, error) {
	query := `
		UPDATE provider_services
		SET status = $2
		WHERE id = $1
		RETURNING id, provider_id, title, description, status, created_at;
	`

	return r.scanService(r.pool.QueryRow(ctx, query, id, status))
}

func (r *PostgresRepo) scanService(row pgx.Row) (models.ProviderService, error) {
	var s models.ProviderService
	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Title,
		&s.Description,
		&s.Status,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ProviderService{}, storage.ErrServiceNotFound
		}

		return models.ProviderService{}, err
	}

	return s, nil
}

func (r *PostgresRepo) ServicesByProvider(ctx context.Context, providerID int64) ([]models.ProviderService, error) {
	const op = "storage.postgres.ServicesByProvider"

	query := `
		SELECT id, provider_id, title, description, status, created_at
		FROM provider_services
		WHERE provider_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.pool.Query(ctx, query, providerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var services []models.ProviderService
	for rows.Next() {
		var s models.ProviderService
		if err := rows.Scan(&s.ID, &s.ProviderID, &s.Title, &s.Description, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		services = append(services, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("%s: %w", op, rows.Err())
	}

	return services, nil
}

// GrantAdmin links the user to an admin profile and appends the ADMIN role.
// Invoked by the grantadmin CLI only, never from a request handler.
func (r *PostgresRepo) GrantAdmin(ctx context.Context, userID int64, permissions []string) error {
	const op = "storage.postgres.GrantAdmin"

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer tx.Rollback(ctx)

	upsertProfile := `
		INSERT INTO admin_profiles (user_id, permissions)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET permissions = EXCLUDED.permissions;
	`

	if _, err := tx.Exec(ctx, upsertProfile, userID, permissions); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	appendRole := `
		UPDATE users
		SET roles = array_append(roles, 'ADMIN')
		WHERE id = $1 AND NOT ('ADMIN' = ANY(roles));
	`

	if _, err := tx.Exec(ctx, appendRole, userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func dsn(cfg *config.Config) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s database=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)
}
