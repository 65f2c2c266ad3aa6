package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ainexllc/ainexsuite-bridge/internal/domain"
)

// Compile-time interface assertions.
var (
	_ InviteRepository = (*PostgresInviteRepo)(nil)
	_ SpaceRepository  = (*PostgresSpaceRepo)(nil)
	_ UserRepository   = (*PostgresUserRepo)(nil)
)

// PostgresInviteRepo implements InviteRepository over pgx.
type PostgresInviteRepo struct {
	db *pgxpool.Pool
}

func NewPostgresInviteRepo(pool *pgxpool.Pool) *PostgresInviteRepo {
	return &PostgresInviteRepo{db: pool}
}

const inviteColumns = `id, space_id, token, inviter_uid, target_email, target_uid, role, status, created_at, expires_at, responded_at`

const insertInviteSQL = `INSERT INTO invitations (id, space_id, token, inviter_uid, target_email, target_uid, role, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (r *PostgresInviteRepo) Create(ctx context.Context, inv domain.Invitation) error {
	_, err := r.db.Exec(ctx, insertInviteSQL,
		inv.ID,
		inv.SpaceID,
		inv.Token,
		inv.InviterUID,
		inv.TargetEmail,
		inv.TargetUID,
		string(inv.Role),
		string(inv.Status),
		inv.CreatedAt,
		inv.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	return nil
}

func (r *PostgresInviteRepo) GetByToken(ctx context.Context, token string) (domain.Invitation, error) {
	// token carries a unique index; at most one row matches.
	row := r.db.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invitations WHERE token = $1`, token)
	inv, err := scanInvite(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invitation{}, domain.ErrInviteNotFound
		}
		return domain.Invitation{}, fmt.Errorf("get invitation: %w", err)
	}
	return inv, nil
}

const markExpiredSQL = `UPDATE invitations SET status = 'expired'
WHERE id = $1 AND status = 'pending' AND expires_at <= $2`

func (r *PostgresInviteRepo) MarkExpired(ctx context.Context, inviteID int64, now time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, markExpiredSQL, inviteID, now)
	if err != nil {
		return false, fmt.Errorf("mark invitation expired: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

const transitionInviteSQL = `UPDATE invitations SET status = $2, responded_at = $3
WHERE token = $1 AND status = 'pending' AND expires_at > $3
RETURNING ` + inviteColumns

const insertMemberSQL = `INSERT INTO space_members (space_id, uid, display_name, photo_url, role, joined_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (space_id, uid) DO NOTHING`

func (r *PostgresInviteRepo) Accept(ctx context.Context, token string, member domain.SpaceMember, now time.Time) (domain.Invitation, bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return domain.Invitation{}, false, fmt.Errorf("begin accept: %w", err)
	}
	defer tx.Rollback(ctx)

	inv, err := scanInvite(tx.QueryRow(ctx, transitionInviteSQL, token, string(domain.InviteStatusAccepted), now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invitation{}, false, nil
		}
		return domain.Invitation{}, false, fmt.Errorf("accept invitation: %w", err)
	}

	// The granted role always comes from the invitation row, not the caller.
	if _, err := tx.Exec(ctx, insertMemberSQL,
		inv.SpaceID,
		member.UID,
		member.DisplayName,
		member.PhotoURL,
		string(inv.Role),
		member.JoinedAt,
	); err != nil {
		return domain.Invitation{}, false, fmt.Errorf("append member: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Invitation{}, false, fmt.Errorf("commit accept: %w", err)
	}
	return inv, true, nil
}

func (r *PostgresInviteRepo) Decline(ctx context.Context, token string, now time.Time) (domain.Invitation, bool, error) {
	inv, err := scanInvite(r.db.QueryRow(ctx, transitionInviteSQL, token, string(domain.InviteStatusDeclined), now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Invitation{}, false, nil
		}
		return domain.Invitation{}, false, fmt.Errorf("decline invitation: %w", err)
	}
	return inv, true, nil
}

func scanInvite(row pgx.Row) (domain.Invitation, error) {
	var (
		inv         domain.Invitation
		role        string
		status      string
		targetEmail sql.NullString
		targetUID   sql.NullString
		respondedAt sql.NullTime
	)
	if err := row.Scan(
		&inv.ID,
		&inv.SpaceID,
		&inv.Token,
		&inv.InviterUID,
		&targetEmail,
		&targetUID,
		&role,
		&status,
		&inv.CreatedAt,
		&inv.ExpiresAt,
		&respondedAt,
	); err != nil {
		return domain.Invitation{}, err
	}
	inv.TargetEmail = targetEmail.String
	inv.TargetUID = targetUID.String
	inv.Role = domain.SpaceRole(role)
	inv.Status = domain.InviteStatus(status)
	if respondedAt.Valid {
		t := respondedAt.Time
		inv.RespondedAt = &t
	}
	return inv, nil
}

// PostgresSpaceRepo implements SpaceRepository.
type PostgresSpaceRepo struct {
	db *pgxpool.Pool
}

func NewPostgresSpaceRepo(pool *pgxpool.Pool) *PostgresSpaceRepo {
	return &PostgresSpaceRepo{db: pool}
}

const insertSpaceSQL = `INSERT INTO spaces (id, name, type, created_by, created_at)
VALUES ($1, $2, $3, $4, $5)`

func (r *PostgresSpaceRepo) Create(ctx context.Context, space domain.Space) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create space: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, insertSpaceSQL,
		space.ID, space.Name, space.Type, space.CreatedBy, space.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert space: %w", err)
	}
	for _, m := range space.Members {
		if _, err := tx.Exec(ctx, insertMemberSQL,
			space.ID, m.UID, m.DisplayName, m.PhotoURL, string(m.Role), m.JoinedAt,
		); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create space: %w", err)
	}
	return nil
}

func (r *PostgresSpaceRepo) Get(ctx context.Context, spaceID int64) (domain.Space, error) {
	var space domain.Space
	err := r.db.QueryRow(ctx,
		`SELECT id, name, type, created_by, created_at FROM spaces WHERE id = $1`, spaceID,
	).Scan(&space.ID, &space.Name, &space.Type, &space.CreatedBy, &space.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Space{}, domain.ErrSpaceNotFound
		}
		return domain.Space{}, fmt.Errorf("get space: %w", err)
	}

	members, err := r.members(ctx, spaceID)
	if err != nil {
		return domain.Space{}, err
	}
	space.Members = members
	return space, nil
}

func (r *PostgresSpaceRepo) ListByMember(ctx context.Context, uid string) ([]domain.Space, error) {
	rows, err := r.db.Query(ctx, `SELECT s.id, s.name, s.type, s.created_by, s.created_at
FROM spaces s
JOIN space_members m ON m.space_id = s.id
WHERE m.uid = $1
ORDER BY s.created_at`, uid)
	if err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}
	defer rows.Close()

	var spaces []domain.Space
	for rows.Next() {
		var space domain.Space
		if err := rows.Scan(&space.ID, &space.Name, &space.Type, &space.CreatedBy, &space.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan space: %w", err)
		}
		spaces = append(spaces, space)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list spaces: %w", err)
	}

	for i := range spaces {
		members, err := r.members(ctx, spaces[i].ID)
		if err != nil {
			return nil, err
		}
		spaces[i].Members = members
	}
	return spaces, nil
}

func (r *PostgresSpaceRepo) AddMember(ctx context.Context, spaceID int64, member domain.SpaceMember) error {
	if _, err := r.db.Exec(ctx, insertMemberSQL,
		spaceID, member.UID, member.DisplayName, member.PhotoURL, string(member.Role), member.JoinedAt,
	); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

func (r *PostgresSpaceRepo) members(ctx context.Context, spaceID int64) ([]domain.SpaceMember, error) {
	rows, err := r.db.Query(ctx,
		`SELECT uid, display_name, photo_url, role, joined_at FROM space_members WHERE space_id = $1 ORDER BY joined_at`,
		spaceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []domain.SpaceMember
	for rows.Next() {
		var (
			m    domain.SpaceMember
			role string
		)
		if err := rows.Scan(&m.UID, &m.DisplayName, &m.PhotoURL, &role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = domain.SpaceRole(role)
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// PostgresUserRepo implements UserRepository.
type PostgresUserRepo struct {
	db *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{db: pool}
}

func (r *PostgresUserRepo) Get(ctx context.Context, uid string) (domain.UserProfile, error) {
	var profile domain.UserProfile
	err := r.db.QueryRow(ctx,
		`SELECT uid, email, display_name, photo_url, roles, created_at, updated_at FROM user_profiles WHERE uid = $1`,
		uid,
	).Scan(&profile.UID, &profile.Email, &profile.DisplayName, &profile.PhotoURL, &profile.Roles, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.UserProfile{}, domain.ErrUserNotFound
		}
		return domain.UserProfile{}, fmt.Errorf("get profile: %w", err)
	}
	return profile, nil
}

const upsertProfileSQL = `INSERT INTO user_profiles (uid, email, display_name, photo_url, roles, created_at, updated_at)
VALUES ($1, $2, $3, $4, '{}', $5, $5)
ON CONFLICT (uid) DO UPDATE SET email = $2, display_name = $3, photo_url = $4, updated_at = $5`

func (r *PostgresUserRepo) Upsert(ctx context.Context, profile domain.UserProfile) error {
	now := time.Now().UTC()
	if _, err := r.db.Exec(ctx, upsertProfileSQL,
		profile.UID, profile.Email, profile.DisplayName, profile.PhotoURL, now,
	); err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// grantRoleSQL appends the role only when absent, leaving every other field
// untouched.
const grantRoleSQL = `UPDATE user_profiles
SET roles = array_append(roles, $2), updated_at = $3
WHERE uid = $1 AND NOT ($2 = ANY(roles))`

func (r *PostgresUserRepo) GrantRole(ctx context.Context, uid, role string) error {
	tag, err := r.db.Exec(ctx, grantRoleSQL, uid, role, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("grant role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the role is already held or the profile is missing.
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM user_profiles WHERE uid = $1)`, uid).Scan(&exists); err != nil {
			return fmt.Errorf("check profile: %w", err)
		}
		if !exists {
			return domain.ErrUserNotFound
		}
	}
	return nil
}
