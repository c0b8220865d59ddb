package repository

import (
	"context"
	"database/sql"
)

// VoteRepo persists endorsement votes.  Voters are anonymous: each vote row
// stores only a SHA-256 fingerprint hash (derived from address and user
// agent), the server-side counterpart of the browser's "has voted" flag.
// The unique (article_id, voter_hash) key makes double voting a constraint
// violation instead of a read-check race.
type VoteRepo struct{ DB *sql.DB }

func NewVoteRepo(db *sql.DB) *VoteRepo { return &VoteRepo{DB: db} }

// Vote records a fingerprint's endorsement and bumps the article counter in
// one transaction.  Returns the new total, ErrDuplicateVote when the
// fingerprint already voted, or ErrNotFound for an unknown article.
func (r *VoteRepo) Vote(ctx context.Context, articleID, voterHash string) (uint64, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO article_votes (article_id, voter_hash) VALUES (?,?)",
		articleID, voterHash); err != nil {
		if isDuplicate(err) {
			return 0, ErrDuplicateVote
		}
		return 0, err
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE articles SET votes = votes + 1 WHERE id=?", articleID)
	if err != nil {
		return 0, err
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, err
	} else if n == 0 {
		return 0, ErrNotFound
	}

	var total uint64
	if err := tx.QueryRowContext(ctx,
		"SELECT votes FROM articles WHERE id=? LIMIT 1", articleID).Scan(&total); err != nil {
		return 0, err
	}
	return total, tx.Commit()
}

// HasVoted reports whether a fingerprint already endorsed the article.
// Used to render the pressed state without attempting an insert.
func (r *VoteRepo) HasVoted(ctx context.Context, articleID, voterHash string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM article_votes WHERE article_id=? AND voter_hash=? LIMIT 1",
		articleID, voterHash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
