package schema

import "strings"

// ClassifyDeclared maps an engine's declared column type to a Type.
//
// Exact base-type names (size/precision stripped) are matched first. Names
// that are still unknown fall back to SQLite's affinity rules, so
// "UNSIGNED BIG INT" or "NATIVE CHARACTER(70)" classify sensibly.
func ClassifyDeclared(declared string) Type {
	upper := strings.ToUpper(strings.TrimSpace(declared))
	if upper == "" {
		return TypeOther
	}
	// MySQL reports booleans as TINYINT(1).
	if upper == "TINYINT(1)" {
		return TypeBoolean
	}

	base := upper
	if idx := strings.Index(base, "("); idx > 0 {
		base = strings.TrimSpace(base[:idx])
	}
	base = strings.TrimSuffix(base, " UNSIGNED")

	switch base {
	case "INT", "INTEGER", "TINYINT", "SMALLINT", "MEDIUMINT", "BIGINT",
		"INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL", "SMALLSERIAL",
		"HUGEINT", "UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT":
		return TypeInteger
	case "FLOAT", "FLOAT4", "FLOAT8", "REAL", "DOUBLE", "DOUBLE PRECISION",
		"DECIMAL", "NUMERIC", "DEC", "FIXED", "MONEY":
		return TypeFloat
	case "BOOL", "BOOLEAN", "BIT":
		return TypeBoolean
	case "DATE":
		return TypeDate
	case "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE",
		"TIMESTAMP WITHOUT TIME ZONE", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS":
		return TypeDateTime
	case "TIME", "TIMETZ", "TIME WITH TIME ZONE", "TIME WITHOUT TIME ZONE":
		return TypeTime
	case "INTERVAL":
		return TypeInterval
	case "CHAR", "VARCHAR", "CHARACTER", "CHARACTER VARYING", "NCHAR", "NVARCHAR",
		"TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "CLOB", "STRING", "UUID",
		"CITEXT", "ENUM":
		return TypeString
	}

	switch {
	case strings.HasPrefix(upper, "INTERVAL"):
		return TypeInterval
	case strings.Contains(upper, "INT"):
		return TypeInteger
	case strings.Contains(upper, "CHAR"), strings.Contains(upper, "CLOB"), strings.Contains(upper, "TEXT"):
		return TypeString
	case strings.Contains(upper, "REAL"), strings.Contains(upper, "FLOA"), strings.Contains(upper, "DOUB"):
		return TypeFloat
	case strings.HasPrefix(upper, "TIMESTAMP"):
		return TypeDateTime
	default:
		return TypeOther
	}
}
