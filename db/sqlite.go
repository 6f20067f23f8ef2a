package db

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/brettboylen/thread-analyzer/models"
)

// Database indexes the submissions seen through search and analysis.
// Only post metadata is stored, never analysis results.
type Database struct {
	db    *sql.DB
	mutex sync.RWMutex
	log   *logrus.Logger
}

// NewDatabase creates a new SQLite database connection
func NewDatabase(dbPath string, log *logrus.Logger) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite serializes writers anyway; one connection also keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database := &Database{
		db:  db,
		log: log,
	}

	if err := database.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.db.Close()
}

// initTables creates the necessary tables if they don't exist
func (d *Database) initTables() error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	query := `
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL,
		subreddit TEXT NOT NULL,
		score INTEGER NOT NULL,
		upvote_ratio REAL NOT NULL,
		num_comments INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL,
		url TEXT,
		permalink TEXT NOT NULL,
		self_text TEXT,
		seen_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_score ON posts(score DESC);
	CREATE INDEX IF NOT EXISTS idx_posts_seen_at ON posts(seen_at DESC);
	CREATE INDEX IF NOT EXISTS idx_posts_subreddit ON posts(subreddit);
	`

	_, err := d.db.Exec(query)
	return err
}

const upsertPostQuery = `
	INSERT INTO posts (
		id, title, author, subreddit, score, upvote_ratio, num_comments,
		created_at, url, permalink, self_text, seen_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		author = excluded.author,
		score = excluded.score,
		upvote_ratio = excluded.upvote_ratio,
		num_comments = excluded.num_comments,
		self_text = excluded.self_text,
		seen_at = excluded.seen_at
	`

const selectPostColumns = `
	SELECT id, title, author, subreddit, score, upvote_ratio, num_comments,
		created_at, url, permalink, self_text
	FROM posts
	`

// SavePosts upserts a batch of posts in one transaction
func (d *Database) SavePosts(posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.Prepare(upsertPostQuery)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	seenAt := time.Now().UTC()
	for _, post := range posts {
		_, err := stmt.Exec(
			post.ID, post.Title, post.Author, post.Subreddit, post.Score,
			post.UpvoteRatio, post.NumComments, post.CreatedAt.UTC(), post.URL,
			post.Permalink, post.SelfText, seenAt,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save post %s: %w", post.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit posts: %w", err)
	}

	if d.log != nil {
		d.log.WithField("count", len(posts)).Debug("Saved posts to submissions index")
	}
	return nil
}

// GetRecentPosts returns the N most recently seen posts
func (d *Database) GetRecentPosts(limit int) ([]models.Post, error) {
	return d.queryPosts(selectPostColumns+`ORDER BY seen_at DESC, created_at DESC LIMIT ?`, limit)
}

// GetTopPostsByScore returns the top N posts by score
func (d *Database) GetTopPostsByScore(limit int) ([]models.Post, error) {
	return d.queryPosts(selectPostColumns+`ORDER BY score DESC, created_at ASC LIMIT ?`, limit)
}

// GetPostsBySubreddit returns the top N posts of a subreddit by score
func (d *Database) GetPostsBySubreddit(subreddit string, limit int) ([]models.Post, error) {
	return d.queryPosts(selectPostColumns+`WHERE subreddit = ? COLLATE NOCASE ORDER BY score DESC, created_at ASC LIMIT ?`, subreddit, limit)
}

// GetTotalPosts returns the total number of posts in the database
func (d *Database) GetTotalPosts() (int, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM posts").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get total posts: %w", err)
	}

	return count, nil
}

func (d *Database) queryPosts(query string, args ...interface{}) ([]models.Post, error) {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0)
	for rows.Next() {
		var post models.Post
		var url, selfText sql.NullString

		err := rows.Scan(
			&post.ID, &post.Title, &post.Author, &post.Subreddit, &post.Score,
			&post.UpvoteRatio, &post.NumComments, &post.CreatedAt, &url,
			&post.Permalink, &selfText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		post.CreatedAt = post.CreatedAt.UTC()
		post.URL = url.String
		post.SelfText = selfText.String
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return posts, nil
}
