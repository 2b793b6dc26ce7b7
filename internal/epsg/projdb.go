package epsg

import (
	"database/sql"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/woozymasta/shp2geojson/internal/crs"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// sexagesimalDMS is the EPSG unit code for angles written as DDD.MMSSsss.
const sexagesimalDMS = "9110"

// ProjDB is a catalog backed by the proj.db SQLite database shipped with PROJ.
// Definitions are read once, on first use, and kept in memory.
type ProjDB struct {
	db   *sql.DB
	path string

	once sync.Once
	reg  *Registry
	err  error
}

var _ Catalog = (*ProjDB)(nil)

// OpenProjDB opens a proj.db file read-only.
func OpenProjDB(path string) (*ProjDB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("proj.db: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening proj.db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening proj.db: %w", err)
	}

	return &ProjDB{db: db, path: path}, nil
}

// Lookup implements Catalog.
func (p *ProjDB) Lookup(code int) (*crs.CRS, error) {
	reg, err := p.registry()
	if err != nil {
		return nil, err
	}
	return reg.Lookup(code)
}

// Candidates implements Catalog.
func (p *ProjDB) Candidates(kind crs.Kind) ([]*crs.CRS, error) {
	reg, err := p.registry()
	if err != nil {
		return nil, err
	}
	return reg.Candidates(kind)
}

// Close implements Catalog.
func (p *ProjDB) Close() error {
	return p.db.Close()
}

func (p *ProjDB) registry() (*Registry, error) {
	p.once.Do(func() {
		p.reg, p.err = p.load()
		if p.err != nil {
			p.err = fmt.Errorf("reading %s: %w", p.path, p.err)
			return
		}
		log.Debug().
			Str("path", p.path).
			Int("definitions", p.reg.Len()).
			Msg("EPSG catalog loaded from proj.db")
	})
	return p.reg, p.err
}

type unit struct {
	kind   string
	factor sql.NullFloat64
}

type unitTable map[string]unit

// convert normalizes a value to degrees, metres or a plain factor
// depending on the unit type.
func (u unitTable) convert(code string, v float64) (float64, bool) {
	if code == sexagesimalDMS {
		return fromDMS(v), true
	}
	un, ok := u[code]
	if !ok || !un.factor.Valid {
		return 0, false
	}
	if un.kind == "angle" {
		return v * un.factor.Float64 / crs.Degree, true
	}
	return v * un.factor.Float64, true
}

func (p *ProjDB) load() (*Registry, error) {
	units, err := p.loadUnits()
	if err != nil {
		return nil, err
	}

	reg := &Registry{byCode: map[int]*crs.CRS{}}
	bases, err := p.loadGeographic(reg, units)
	if err != nil {
		return nil, err
	}
	if err := p.loadProjected(reg, units, bases); err != nil {
		return nil, err
	}

	sortByCode(reg.geographic)
	sortByCode(reg.projected)
	return reg, nil
}

func (p *ProjDB) loadUnits() (unitTable, error) {
	rows, err := p.db.Query(`SELECT code, type, conv_factor FROM unit_of_measure WHERE auth_name = 'EPSG'`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	units := unitTable{}
	for rows.Next() {
		var code, kind string
		var factor sql.NullFloat64
		if err := rows.Scan(&code, &kind, &factor); err != nil {
			return nil, err
		}
		units[code] = unit{kind: kind, factor: factor}
	}
	return units, rows.Err()
}

const geographicQuery = `
SELECT g.code, g.name, d.name,
       e.name, e.semi_major_axis, e.inv_flattening, e.semi_minor_axis, e.uom_code,
       pm.longitude, pm.uom_code, a.uom_code
FROM geodetic_crs g
JOIN geodetic_datum d ON d.auth_name = g.datum_auth_name AND d.code = g.datum_code
JOIN ellipsoid e ON e.auth_name = d.ellipsoid_auth_name AND e.code = d.ellipsoid_code
JOIN prime_meridian pm ON pm.auth_name = d.prime_meridian_auth_name AND pm.code = d.prime_meridian_code
JOIN axis a ON a.coordinate_system_auth_name = g.coordinate_system_auth_name
           AND a.coordinate_system_code = g.coordinate_system_code
           AND a.coordinate_system_order = 1
WHERE g.auth_name = 'EPSG' AND g.type = 'geographic 2D' AND g.deprecated = 0`

func (p *ProjDB) loadGeographic(reg *Registry, units unitTable) (map[string]crs.Geodetic, error) {
	rows, err := p.db.Query(geographicQuery)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	bases := map[string]crs.Geodetic{}
	for rows.Next() {
		var (
			code, name, datum, ellName, ellUnit, pmUnit, axisUnit string
			semiMajor, pmLon                                      float64
			invFlat, semiMinor                                    sql.NullFloat64
		)
		if err := rows.Scan(&code, &name, &datum, &ellName, &semiMajor, &invFlat, &semiMinor,
			&ellUnit, &pmLon, &pmUnit, &axisUnit); err != nil {
			return nil, err
		}

		n, err := strconv.Atoi(code)
		if err != nil {
			continue
		}

		a, ok := units.convert(ellUnit, semiMajor)
		if !ok {
			continue
		}
		rf := invFlat.Float64
		if !invFlat.Valid && semiMinor.Valid {
			if b, ok := units.convert(ellUnit, semiMinor.Float64); ok && a != b {
				rf = a / (a - b)
			}
		}
		pm, ok := units.convert(pmUnit, pmLon)
		if !ok {
			continue
		}
		angular := crs.Degree
		if u, ok := units[axisUnit]; ok && u.factor.Valid {
			angular = u.factor.Float64
		}

		g := crs.Geodetic{
			Name:          name,
			Datum:         datum,
			Ellipsoid:     crs.Ellipsoid{Name: ellName, SemiMajor: a, InvFlattening: rf},
			PrimeMeridian: pm,
			AngularUnit:   angular,
		}
		bases[code] = g
		if err := reg.add(crs.NewGeographic(n, g)); err != nil {
			return nil, err
		}
	}
	return bases, rows.Err()
}

const conversionParams = 7

func projectedQuery() string {
	cols := make([]string, 0, conversionParams)
	for i := 1; i <= conversionParams; i++ {
		cols = append(cols, fmt.Sprintf("c.param%[1]d_code, c.param%[1]d_value, c.param%[1]d_uom_code", i))
	}
	return `
SELECT p.code, p.name, p.geodetic_crs_code, c.method_code, a.uom_code, ` + strings.Join(cols, ", ") + `
FROM projected_crs p
JOIN conversion c ON c.auth_name = p.conversion_auth_name AND c.code = p.conversion_code
JOIN axis a ON a.coordinate_system_auth_name = p.coordinate_system_auth_name
           AND a.coordinate_system_code = p.coordinate_system_code
           AND a.coordinate_system_order = 1
WHERE p.auth_name = 'EPSG' AND p.geodetic_crs_auth_name = 'EPSG' AND p.deprecated = 0`
}

func (p *ProjDB) loadProjected(reg *Registry, units unitTable, bases map[string]crs.Geodetic) error {
	rows, err := p.db.Query(projectedQuery())
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	var skipped int
	for rows.Next() {
		var code, name, baseCode, methodCode, axisUnit string
		paramCodes := make([]sql.NullString, conversionParams)
		paramValues := make([]sql.NullFloat64, conversionParams)
		paramUnits := make([]sql.NullString, conversionParams)

		dest := []any{&code, &name, &baseCode, &methodCode, &axisUnit}
		for i := 0; i < conversionParams; i++ {
			dest = append(dest, &paramCodes[i], &paramValues[i], &paramUnits[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return err
		}

		n, err := strconv.Atoi(code)
		if err != nil {
			continue
		}
		base, ok := bases[baseCode]
		if !ok {
			skipped++
			continue
		}
		mc, _ := strconv.Atoi(methodCode)
		method, ok := crs.EPSGMethods[mc]
		if !ok {
			skipped++
			continue
		}
		linear, ok := units.convert(axisUnit, 1)
		if !ok {
			skipped++
			continue
		}

		params := map[string]float64{}
		valid := true
		for i := 0; i < conversionParams; i++ {
			if !paramCodes[i].Valid || !paramValues[i].Valid {
				continue
			}
			pc, _ := strconv.Atoi(paramCodes[i].String)
			pname, known := crs.EPSGParams[pc]
			if !known {
				valid = false
				break
			}
			v, ok := units.convert(paramUnits[i].String, paramValues[i].Float64)
			if !ok {
				valid = false
				break
			}
			params[crs.AdjustParam(method, pname)] = v
		}
		if !valid {
			skipped++
			continue
		}

		conv := crs.Conversion{Method: method, Params: params, LinearUnit: linear}
		if err := reg.add(crs.NewProjected(n, name, base, conv)); err != nil {
			return err
		}
	}

	if skipped > 0 {
		log.Trace().Int("skipped", skipped).Msg("Projected CRS with unsupported methods or bases ignored")
	}
	return rows.Err()
}

// fromDMS converts an EPSG sexagesimal DMS value (DDD.MMSSsss) to decimal degrees.
func fromDMS(v float64) float64 {
	sign := 1.0
	if v < 0 {
		sign, v = -1, -v
	}
	deg := math.Floor(v)
	rest := (v - deg) * 100
	minutes := math.Floor(rest + 1e-9)
	seconds := (rest - minutes) * 100
	return sign * (deg + minutes/60 + seconds/3600)
}
