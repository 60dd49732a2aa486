package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const notificationColumns = `id, org_id, user_id, type, title, title_ar, message, message_ar,
	resource_type, resource_id, is_read, read_at, created_at`

// NotificationRepository handles in-app notification persistence
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *entities.Notification) error {
	stamp(&n.CreatedAt, nil)
	query := `
		INSERT INTO notifications (` + notificationColumns + `)
		VALUES (:id, :org_id, :user_id, :type, :title, :title_ar, :message, :message_ar,
			:resource_type, :resource_id, :is_read, :read_at, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, n)
	return mapError(err)
}

// visible restricts to the user's own and organisation-wide notifications.
func visible(orgID, userID uuid.UUID) *filter {
	f := newFilter(orgID)
	f.add("(user_id IS NULL OR user_id = ?)", userID)
	return f
}

func (r *NotificationRepository) List(ctx context.Context, orgID, userID uuid.UUID, params entities.ListParams) ([]*entities.Notification, int, error) {
	f := visible(orgID, userID)
	f.addIf(params.UnreadOnly, "is_read = ?", false)
	return listPage[*entities.Notification](ctx, r.db, notificationColumns, "notifications", "created_at DESC", f, params)
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, orgID, userID uuid.UUID) (int, error) {
	f := visible(orgID, userID)
	f.add("is_read = ?", false)
	var n int
	err := r.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM notifications"+f.where(), f.args...)
	return n, err
}

// MarkRead reports false only when the notification is not visible to the user.
func (r *NotificationRepository) MarkRead(ctx context.Context, orgID, userID, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $4)
		WHERE org_id = $1 AND id = $2 AND (user_id IS NULL OR user_id = $3)`
	res, err := r.db.ExecContext(ctx, query, orgID, id, userID, now())
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, orgID, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications SET is_read = TRUE, read_at = $3
		WHERE org_id = $1 AND (user_id IS NULL OR user_id = $2) AND NOT is_read`
	res, err := r.db.ExecContext(ctx, query, orgID, userID, now())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
