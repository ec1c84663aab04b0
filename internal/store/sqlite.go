// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite.
// ABOUTME: Bootstraps the schema and provides transactional execution via WithTx.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/macrolog/macro-gateway/internal/nutrition"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	q      querier
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path. The schema is
// created if it doesn't exist; parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db, q: db, logger: logger}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			external_id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_external_id
			ON users(external_id);

		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id TEXT PRIMARY KEY,
			sex TEXT,
			birth_date DATETIME,
			height_cm REAL,
			weight_kg REAL,
			activity_level TEXT,
			goal TEXT,
			calorie_delta REAL,
			target_calories INTEGER,
			target_protein INTEGER,
			target_fat INTEGER,
			target_carbs INTEGER,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			owner_id TEXT,
			name TEXT NOT NULL,
			brand TEXT NOT NULL DEFAULT '',
			kcal100 REAL NOT NULL,
			protein100 REAL NOT NULL,
			fat100 REAL NOT NULL,
			carbs100 REAL NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

		CREATE TABLE IF NOT EXISTS recipe_drafts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			servings INTEGER,
			status TEXT NOT NULL DEFAULT 'DRAFT',
			total_calories REAL NOT NULL DEFAULT 0,
			total_protein REAL NOT NULL DEFAULT 0,
			total_fat REAL NOT NULL DEFAULT 0,
			total_carbs REAL NOT NULL DEFAULT 0,
			serving_calories REAL NOT NULL DEFAULT 0,
			serving_protein REAL NOT NULL DEFAULT 0,
			serving_fat REAL NOT NULL DEFAULT 0,
			serving_carbs REAL NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);

		CREATE TABLE IF NOT EXISTS recipe_draft_ingredients (
			id TEXT PRIMARY KEY,
			draft_id TEXT NOT NULL,
			ord INTEGER NOT NULL,
			name TEXT NOT NULL,
			amount REAL,
			unit TEXT,
			product_id TEXT,
			kcal100 REAL,
			protein100 REAL,
			fat100 REAL,
			carbs100 REAL,
			assumptions TEXT,
			FOREIGN KEY (draft_id) REFERENCES recipe_drafts(id)
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_draft_ingredients_ord
			ON recipe_draft_ingredients(draft_id, ord);

		CREATE TABLE IF NOT EXISTS recipe_draft_steps (
			id TEXT PRIMARY KEY,
			draft_id TEXT NOT NULL,
			ord INTEGER NOT NULL,
			text TEXT NOT NULL,
			FOREIGN KEY (draft_id) REFERENCES recipe_drafts(id)
		);

		CREATE INDEX IF NOT EXISTS idx_draft_steps_draft
			ON recipe_draft_steps(draft_id, ord);

		CREATE TABLE IF NOT EXISTS recipes (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			draft_id TEXT NOT NULL,
			title TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			servings INTEGER NOT NULL,
			ingredients TEXT NOT NULL,
			steps TEXT NOT NULL,
			total_calories REAL NOT NULL,
			total_protein REAL NOT NULL,
			total_fat REAL NOT NULL,
			total_carbs REAL NOT NULL,
			serving_calories REAL NOT NULL,
			serving_protein REAL NOT NULL,
			serving_fat REAL NOT NULL,
			serving_carbs REAL NOT NULL,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS idempotency_records (
			operation TEXT NOT NULL,
			key TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			result BLOB NOT NULL,
			created_at DATETIME NOT NULL,
			PRIMARY KEY (operation, key, entity_id)
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// WithTx runs fn inside a transaction. A store that is already transactional
// reuses the open transaction, so nested WithTx calls compose.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	txStore := &SQLiteStore{db: s.db, q: tx, logger: s.logger}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Users

func (s *SQLiteStore) CreateUser(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO users (id, external_id, name, created_at) VALUES (?, ?, ?, ?)`,
		user.ID, user.ExternalID, user.Name, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx,
		`SELECT id, external_id, name, created_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) GetUserByExternalID(ctx context.Context, externalID string) (*User, error) {
	return s.scanUser(s.q.QueryRowContext(ctx,
		`SELECT id, external_id, name, created_at FROM users WHERE external_id = ?`, externalID))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ExternalID, &u.Name, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning user: %w", err)
	}
	return &u, nil
}

// Profiles

func (s *SQLiteStore) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	var p UserProfile
	err := s.q.QueryRowContext(ctx,
		`SELECT user_id, sex, birth_date, height_cm, weight_kg, activity_level, goal,
		        calorie_delta, target_calories, target_protein, target_fat, target_carbs, updated_at
		 FROM user_profiles WHERE user_id = ?`, userID).
		Scan(&p.UserID, &p.Sex, &p.BirthDate, &p.HeightCm, &p.WeightKg, &p.ActivityLevel,
			&p.Goal, &p.CalorieDelta, &p.TargetCalories, &p.TargetProtein, &p.TargetFat,
			&p.TargetCarbs, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning profile: %w", err)
	}
	return &p, nil
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *UserProfile) error {
	profile.UpdatedAt = time.Now().UTC()
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO user_profiles (user_id, sex, birth_date, height_cm, weight_kg,
		        activity_level, goal, calorie_delta, target_calories, target_protein,
		        target_fat, target_carbs, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		        sex = excluded.sex,
		        birth_date = excluded.birth_date,
		        height_cm = excluded.height_cm,
		        weight_kg = excluded.weight_kg,
		        activity_level = excluded.activity_level,
		        goal = excluded.goal,
		        calorie_delta = excluded.calorie_delta,
		        target_calories = excluded.target_calories,
		        target_protein = excluded.target_protein,
		        target_fat = excluded.target_fat,
		        target_carbs = excluded.target_carbs,
		        updated_at = excluded.updated_at`,
		profile.UserID, profile.Sex, profile.BirthDate, profile.HeightCm, profile.WeightKg,
		profile.ActivityLevel, profile.Goal, profile.CalorieDelta, profile.TargetCalories,
		profile.TargetProtein, profile.TargetFat, profile.TargetCarbs, profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting profile: %w", err)
	}
	return nil
}

// Products

func (s *SQLiteStore) CreateProduct(ctx context.Context, product *Product) error {
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO products (id, owner_id, name, brand, kcal100, protein100, fat100, carbs100, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID, product.OwnerID, product.Name, product.Brand,
		product.Kcal100, product.Protein100, product.Fat100, product.Carbs100, product.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating product: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetProduct(ctx context.Context, id string) (*Product, error) {
	var p Product
	err := s.q.QueryRowContext(ctx,
		`SELECT id, owner_id, name, brand, kcal100, protein100, fat100, carbs100, created_at
		 FROM products WHERE id = ?`, id).
		Scan(&p.ID, &p.OwnerID, &p.Name, &p.Brand, &p.Kcal100, &p.Protein100, &p.Fat100,
			&p.Carbs100, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning product: %w", err)
	}
	return &p, nil
}

// SearchProducts returns products whose name contains query, case-insensitive.
// When ownerID is non-empty the caller's own products sort first.
func (s *SQLiteStore) SearchProducts(ctx context.Context, query, ownerID string, limit int) ([]*Product, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, owner_id, name, brand, kcal100, protein100, fat100, carbs100, created_at
		 FROM products
		 WHERE name LIKE '%' || ? || '%' COLLATE NOCASE
		 ORDER BY CASE WHEN owner_id = ? THEN 0 ELSE 1 END, name
		 LIMIT ?`, query, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Brand, &p.Kcal100, &p.Protein100,
			&p.Fat100, &p.Carbs100, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning product: %w", err)
		}
		products = append(products, &p)
	}
	return products, rows.Err()
}

// Recipe drafts

func (s *SQLiteStore) CreateDraft(ctx context.Context, draft *RecipeDraft) error {
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now
	if draft.Status == "" {
		draft.Status = DraftStatusDraft
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO recipe_drafts (id, user_id, title, category, description, servings, status,
		        total_calories, total_protein, total_fat, total_carbs,
		        serving_calories, serving_protein, serving_fat, serving_carbs,
		        created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0, 0, 0, 0, 0, 0, 0, 0, ?, ?)`,
		draft.ID, draft.UserID, draft.Title, draft.Category, draft.Description,
		draft.Servings, draft.Status, draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating draft: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetDraft(ctx context.Context, id string) (*RecipeDraft, error) {
	var d RecipeDraft
	err := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, title, category, description, servings, status,
		        total_calories, total_protein, total_fat, total_carbs,
		        serving_calories, serving_protein, serving_fat, serving_carbs,
		        created_at, updated_at
		 FROM recipe_drafts WHERE id = ?`, id).
		Scan(&d.ID, &d.UserID, &d.Title, &d.Category, &d.Description, &d.Servings, &d.Status,
			&d.NutritionTotal.Calories, &d.NutritionTotal.Protein, &d.NutritionTotal.Fat,
			&d.NutritionTotal.Carbs, &d.NutritionPerServing.Calories, &d.NutritionPerServing.Protein,
			&d.NutritionPerServing.Fat, &d.NutritionPerServing.Carbs, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning draft: %w", err)
	}

	if d.Ingredients, err = s.draftIngredients(ctx, id); err != nil {
		return nil, err
	}
	if d.Steps, err = s.draftSteps(ctx, id); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *SQLiteStore) draftIngredients(ctx context.Context, draftID string) ([]*RecipeDraftIngredient, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, draft_id, ord, name, amount, unit, product_id,
		        kcal100, protein100, fat100, carbs100, assumptions
		 FROM recipe_draft_ingredients WHERE draft_id = ? ORDER BY ord`, draftID)
	if err != nil {
		return nil, fmt.Errorf("loading draft ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []*RecipeDraftIngredient
	for rows.Next() {
		var ing RecipeDraftIngredient
		if err := rows.Scan(&ing.ID, &ing.DraftID, &ing.Order, &ing.Name, &ing.Amount, &ing.Unit,
			&ing.ProductID, &ing.Kcal100, &ing.Protein100, &ing.Fat100, &ing.Carbs100,
			&ing.Assumptions); err != nil {
			return nil, fmt.Errorf("scanning ingredient: %w", err)
		}
		ingredients = append(ingredients, &ing)
	}
	return ingredients, rows.Err()
}

func (s *SQLiteStore) draftSteps(ctx context.Context, draftID string) ([]*RecipeDraftStep, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, draft_id, ord, text FROM recipe_draft_steps WHERE draft_id = ? ORDER BY ord`, draftID)
	if err != nil {
		return nil, fmt.Errorf("loading draft steps: %w", err)
	}
	defer rows.Close()

	var steps []*RecipeDraftStep
	for rows.Next() {
		var st RecipeDraftStep
		if err := rows.Scan(&st.ID, &st.DraftID, &st.Order, &st.Text); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		steps = append(steps, &st)
	}
	return steps, rows.Err()
}

func (s *SQLiteStore) UpdateDraftNutrition(ctx context.Context, draftID string, total, perServing nutrition.Macros) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE recipe_drafts SET
		        total_calories = ?, total_protein = ?, total_fat = ?, total_carbs = ?,
		        serving_calories = ?, serving_protein = ?, serving_fat = ?, serving_carbs = ?,
		        updated_at = ?
		 WHERE id = ?`,
		total.Calories, total.Protein, total.Fat, total.Carbs,
		perServing.Calories, perServing.Protein, perServing.Fat, perServing.Carbs,
		time.Now().UTC(), draftID)
	if err != nil {
		return fmt.Errorf("updating draft nutrition: %w", err)
	}
	return requireRow(res)
}

func (s *SQLiteStore) SetDraftStatus(ctx context.Context, draftID, status string) error {
	res, err := s.q.ExecContext(ctx,
		`UPDATE recipe_drafts SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), draftID)
	if err != nil {
		return fmt.Errorf("updating draft status: %w", err)
	}
	return requireRow(res)
}

// UpsertIngredient inserts the ingredient, or overwrites the row occupying
// the same (draft_id, ord) slot in place. The existing row id survives an
// overwrite so order stays unique per draft by construction.
func (s *SQLiteStore) UpsertIngredient(ctx context.Context, ing *RecipeDraftIngredient) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO recipe_draft_ingredients
		        (id, draft_id, ord, name, amount, unit, product_id, kcal100, protein100, fat100, carbs100, assumptions)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(draft_id, ord) DO UPDATE SET
		        name = excluded.name,
		        amount = excluded.amount,
		        unit = excluded.unit,
		        product_id = excluded.product_id,
		        kcal100 = excluded.kcal100,
		        protein100 = excluded.protein100,
		        fat100 = excluded.fat100,
		        carbs100 = excluded.carbs100,
		        assumptions = excluded.assumptions`,
		ing.ID, ing.DraftID, ing.Order, ing.Name, ing.Amount, ing.Unit, ing.ProductID,
		ing.Kcal100, ing.Protein100, ing.Fat100, ing.Carbs100, ing.Assumptions)
	if err != nil {
		return fmt.Errorf("upserting ingredient: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteIngredient(ctx context.Context, draftID, ingredientID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM recipe_draft_ingredients WHERE draft_id = ? AND id = ?`, draftID, ingredientID)
	if err != nil {
		return false, fmt.Errorf("deleting ingredient: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ReplaceSteps deletes all existing steps and inserts the new list. Callers
// run this inside WithTx so the swap is atomic.
func (s *SQLiteStore) ReplaceSteps(ctx context.Context, draftID string, steps []*RecipeDraftStep) error {
	if _, err := s.q.ExecContext(ctx,
		`DELETE FROM recipe_draft_steps WHERE draft_id = ?`, draftID); err != nil {
		return fmt.Errorf("clearing steps: %w", err)
	}
	for _, st := range steps {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO recipe_draft_steps (id, draft_id, ord, text) VALUES (?, ?, ?, ?)`,
			st.ID, draftID, st.Order, st.Text); err != nil {
			return fmt.Errorf("inserting step: %w", err)
		}
	}
	return nil
}

// Published recipes

func (s *SQLiteStore) CreateRecipe(ctx context.Context, recipe *Recipe) error {
	if recipe.CreatedAt.IsZero() {
		recipe.CreatedAt = time.Now().UTC()
	}
	ingredients, err := json.Marshal(recipe.Ingredients)
	if err != nil {
		return fmt.Errorf("encoding ingredients: %w", err)
	}
	steps, err := json.Marshal(recipe.Steps)
	if err != nil {
		return fmt.Errorf("encoding steps: %w", err)
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO recipes (id, user_id, draft_id, title, category, description, servings,
		        ingredients, steps,
		        total_calories, total_protein, total_fat, total_carbs,
		        serving_calories, serving_protein, serving_fat, serving_carbs, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recipe.ID, recipe.UserID, recipe.DraftID, recipe.Title, recipe.Category,
		recipe.Description, recipe.Servings, string(ingredients), string(steps),
		recipe.NutritionTotal.Calories, recipe.NutritionTotal.Protein,
		recipe.NutritionTotal.Fat, recipe.NutritionTotal.Carbs,
		recipe.NutritionPerServing.Calories, recipe.NutritionPerServing.Protein,
		recipe.NutritionPerServing.Fat, recipe.NutritionPerServing.Carbs, recipe.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating recipe: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetRecipe(ctx context.Context, id string) (*Recipe, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT id, user_id, draft_id, title, category, description, servings, ingredients, steps,
		        total_calories, total_protein, total_fat, total_carbs,
		        serving_calories, serving_protein, serving_fat, serving_carbs, created_at
		 FROM recipes WHERE id = ?`, id)
	recipe, err := scanRecipe(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return recipe, err
}

func (s *SQLiteStore) ListRecipes(ctx context.Context, limit int) ([]*Recipe, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, user_id, draft_id, title, category, description, servings, ingredients, steps,
		        total_calories, total_protein, total_fat, total_carbs,
		        serving_calories, serving_protein, serving_fat, serving_carbs, created_at
		 FROM recipes ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	defer rows.Close()

	var recipes []*Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows.Scan)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

func scanRecipe(scan func(...any) error) (*Recipe, error) {
	var r Recipe
	var ingredients, steps string
	err := scan(&r.ID, &r.UserID, &r.DraftID, &r.Title, &r.Category, &r.Description, &r.Servings,
		&ingredients, &steps,
		&r.NutritionTotal.Calories, &r.NutritionTotal.Protein, &r.NutritionTotal.Fat,
		&r.NutritionTotal.Carbs, &r.NutritionPerServing.Calories, &r.NutritionPerServing.Protein,
		&r.NutritionPerServing.Fat, &r.NutritionPerServing.Carbs, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(ingredients), &r.Ingredients); err != nil {
		return nil, fmt.Errorf("decoding recipe ingredients: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &r.Steps); err != nil {
		return nil, fmt.Errorf("decoding recipe steps: %w", err)
	}
	return &r, nil
}

// Idempotency records

func (s *SQLiteStore) GetIdempotencyRecord(ctx context.Context, operation, key, entityID string) (*IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := s.q.QueryRowContext(ctx,
		`SELECT operation, key, entity_id, result, created_at
		 FROM idempotency_records WHERE operation = ? AND key = ? AND entity_id = ?`,
		operation, key, entityID).
		Scan(&rec.Operation, &rec.Key, &rec.EntityID, &rec.Result, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning idempotency record: %w", err)
	}
	return &rec, nil
}

func (s *SQLiteStore) InsertIdempotencyRecord(ctx context.Context, rec *IdempotencyRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO idempotency_records (operation, key, entity_id, result, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.Operation, rec.Key, rec.EntityID, rec.Result, rec.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateIdempotencyKey
	}
	if err != nil {
		return fmt.Errorf("inserting idempotency record: %w", err)
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
