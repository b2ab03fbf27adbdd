package doctor

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dermahub/dermahub/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// =========== Profile Repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `user_id, cuim, tier, years_experience, bio, city, created_at, updated_at`

func (r *profileRepoPG) Upsert(ctx context.Context, p *Profile) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_profile (user_id, cuim, tier, years_experience, bio, city)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (user_id) DO UPDATE SET
			cuim = EXCLUDED.cuim,
			tier = EXCLUDED.tier,
			years_experience = EXCLUDED.years_experience,
			bio = COALESCE(EXCLUDED.bio, doctor_profile.bio),
			city = COALESCE(EXCLUDED.city, doctor_profile.city),
			updated_at = NOW()`,
		p.UserID, p.CUIM, p.Tier, p.YearsExperience, p.Bio, p.City)
	return err
}

func (r *profileRepoPG) GetByUser(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	var p Profile
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM doctor_profile WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.CUIM, &p.Tier, &p.YearsExperience, &p.Bio, &p.City, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	return &p, err
}

const listingCols = `p.user_id, p.cuim, p.tier, p.years_experience, p.bio, p.city, p.created_at, p.updated_at, a.display_name`

func scanListing(row pgx.Row) (*Listing, error) {
	var l Listing
	err := row.Scan(&l.UserID, &l.CUIM, &l.Tier, &l.YearsExperience, &l.Bio, &l.City,
		&l.CreatedAt, &l.UpdatedAt, &l.DisplayName)
	return &l, err
}

func (r *profileRepoPG) List(ctx context.Context, city string, limit, offset int) ([]*Listing, int, error) {
	where := ``
	countArgs := []interface{}{}
	if city != "" {
		where = ` WHERE p.city ILIKE $1`
		countArgs = append(countArgs, city)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM doctor_profile p`+where, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(countArgs, limit, offset)
	limitClause := ` ORDER BY p.created_at DESC LIMIT $1 OFFSET $2`
	if city != "" {
		limitClause = ` ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+listingCols+` FROM doctor_profile p
		JOIN account a ON a.id = p.user_id`+where+limitClause, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, nil
}

// =========== Institution Repository ===========

type institutionRepoPG struct{ pool *pgxpool.Pool }

func NewInstitutionRepoPG(pool *pgxpool.Pool) InstitutionRepository {
	return &institutionRepoPG{pool: pool}
}

func (r *institutionRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *institutionRepoPG) UpsertByName(ctx context.Context, name string) (*Institution, error) {
	var inst Institution
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO institution (id, name)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, name, created_at`,
		uuid.New(), name).
		Scan(&inst.ID, &inst.Name, &inst.CreatedAt)
	return &inst, err
}

func (r *institutionRepoPG) AddDoctor(ctx context.Context, institutionID, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO institution_doctor (institution_id, doctor_id)
		VALUES ($1, $2)
		ON CONFLICT (institution_id, doctor_id) DO NOTHING`,
		institutionID, doctorID)
	return err
}

func (r *institutionRepoPG) List(ctx context.Context, limit, offset int) ([]*Institution, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM institution`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, created_at FROM institution ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Institution
	for rows.Next() {
		var inst Institution
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.CreatedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &inst)
	}
	return items, total, nil
}

func (r *institutionRepoPG) ListDoctors(ctx context.Context, institutionID uuid.UUID, limit, offset int) ([]*Listing, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM institution_doctor WHERE institution_id = $1`, institutionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+listingCols+` FROM institution_doctor d
		JOIN doctor_profile p ON p.user_id = d.doctor_id
		JOIN account a ON a.id = d.doctor_id
		WHERE d.institution_id = $1
		ORDER BY a.display_name LIMIT $2 OFFSET $3`,
		institutionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, nil
}

// =========== Link Repository ===========

type linkRepoPG struct{ pool *pgxpool.Pool }

func NewLinkRepoPG(pool *pgxpool.Pool) LinkRepository {
	return &linkRepoPG{pool: pool}
}

func (r *linkRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *linkRepoPG) Link(ctx context.Context, patientID, doctorID uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient_doctor (patient_id, doctor_id, active)
		VALUES ($1, $2, TRUE)
		ON CONFLICT (patient_id, doctor_id) DO UPDATE SET active = TRUE, updated_at = NOW()`,
		patientID, doctorID)
	return err
}

func (r *linkRepoPG) Deactivate(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient_doctor SET active = FALSE, updated_at = NOW()
		WHERE patient_id = $1 AND doctor_id = $2 AND active`,
		patientID, doctorID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *linkRepoPG) Linked(ctx context.Context, patientID, doctorID uuid.UUID) (bool, error) {
	var linked bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM patient_doctor
			WHERE patient_id = $1 AND doctor_id = $2 AND active)`,
		patientID, doctorID).Scan(&linked)
	return linked, err
}

func (r *linkRepoPG) ListDoctorsForPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Listing, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_doctor WHERE patient_id = $1 AND active`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+listingCols+` FROM patient_doctor pd
		JOIN doctor_profile p ON p.user_id = pd.doctor_id
		JOIN account a ON a.id = pd.doctor_id
		WHERE pd.patient_id = $1 AND pd.active
		ORDER BY pd.created_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, nil
}

func (r *linkRepoPG) ListPatientsForDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*PatientListing, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM patient_doctor WHERE doctor_id = $1 AND active`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT pd.patient_id, a.display_name, pd.created_at
		FROM patient_doctor pd
		JOIN account a ON a.id = pd.patient_id
		WHERE pd.doctor_id = $1 AND pd.active
		ORDER BY pd.created_at DESC LIMIT $2 OFFSET $3`,
		doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*PatientListing
	for rows.Next() {
		var pl PatientListing
		if err := rows.Scan(&pl.PatientID, &pl.DisplayName, &pl.LinkedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &pl)
	}
	return items, total, nil
}
