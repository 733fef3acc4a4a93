package entity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"caseline/pkg/domain"
	"caseline/pkg/platform/sentinel"

	"caseline/internal/timeline/models"
)

// PostgresReader loads person graphs from the ingested-entity store. Rows are
// ordered by (person, kind, seq) so the engine always sees the same input
// order for the same data.
type PostgresReader struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresReader {
	return &PostgresReader{db: db}
}

const personColumns = `id, jurisdiction, birth_date`

const periodColumns = `person_id, kind, seq, start_date, end_date,
	facility, custody_level, admission_reason_raw,
	supervision_type, supervision_level,
	violation_severity, response_decision, violation_date`

func (r *PostgresReader) GetPerson(ctx context.Context, id domain.PersonID) (*models.Person, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+personColumns+` FROM persons WHERE id = $1`, id.String())

	person, err := scanPerson(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get person: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM periods WHERE person_id = $1 ORDER BY kind, seq`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("get person periods: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		period, _, err := scanPeriod(rows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		person.Periods = append(person.Periods, period)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return person, nil
}

func (r *PostgresReader) ListPersons(ctx context.Context) ([]models.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+personColumns+` FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []models.Person
	index := make(map[domain.PersonID]int)
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		index[person.ID] = len(persons)
		persons = append(persons, *person)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate persons: %w", err)
	}
	if len(persons) == 0 {
		return nil, nil
	}

	periodRows, err := r.db.QueryContext(ctx,
		`SELECT `+periodColumns+` FROM periods ORDER BY person_id, kind, seq`)
	if err != nil {
		return nil, fmt.Errorf("list periods: %w", err)
	}
	defer periodRows.Close()

	for periodRows.Next() {
		period, personID, err := scanPeriod(periodRows)
		if err != nil {
			return nil, fmt.Errorf("scan period: %w", err)
		}
		if i, ok := index[personID]; ok {
			persons[i].Periods = append(persons[i].Periods, period)
		}
	}
	if err := periodRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate periods: %w", err)
	}
	return persons, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (*models.Person, error) {
	var (
		rawID        string
		jurisdiction string
		birthDate    sql.NullTime
	)
	if err := row.Scan(&rawID, &jurisdiction, &birthDate); err != nil {
		return nil, err
	}
	id, err := domain.ParsePersonID(rawID)
	if err != nil {
		return nil, fmt.Errorf("malformed person id %q: %w", rawID, err)
	}
	person := &models.Person{
		ID:           id,
		Jurisdiction: domain.JurisdictionCode(jurisdiction),
	}
	if birthDate.Valid {
		person.BirthDate = birthDate.Time.UTC()
	}
	return person, nil
}

func scanPeriod(row scanner) (models.Period, domain.PersonID, error) {
	var (
		rawPersonID   string
		kind          string
		seq           int64
		startDate     time.Time
		endDate       sql.NullTime
		facility      sql.NullString
		custodyLevel  sql.NullString
		admissionRaw  sql.NullString
		supType       sql.NullString
		supLevel      sql.NullString
		severity      sql.NullString
		decision      sql.NullString
		violationDate sql.NullTime
	)
	err := row.Scan(&rawPersonID, &kind, &seq, &startDate, &endDate,
		&facility, &custodyLevel, &admissionRaw,
		&supType, &supLevel,
		&severity, &decision, &violationDate)
	if err != nil {
		return models.Period{}, domain.PersonID{}, err
	}
	personID, err := domain.ParsePersonID(rawPersonID)
	if err != nil {
		return models.Period{}, domain.PersonID{}, fmt.Errorf("malformed person id %q: %w", rawPersonID, err)
	}

	period := models.Period{
		Kind:  models.PeriodKind(kind),
		Seq:   domain.SequenceID(seq),
		Start: startDate.UTC(),
		Attrs: models.Attributes{
			Facility:           facility.String,
			CustodyLevel:       custodyLevel.String,
			AdmissionReasonRaw: admissionRaw.String,
			SupervisionType:    supType.String,
			SupervisionLevel:   supLevel.String,
			ViolationSeverity:  severity.String,
			ResponseDecision:   models.ResponseDecision(decision.String),
		},
	}
	if endDate.Valid {
		end := endDate.Time.UTC()
		period.End = &end
	}
	if violationDate.Valid {
		period.Attrs.ViolationDate = violationDate.Time.UTC()
	}
	return period, personID, nil
}
