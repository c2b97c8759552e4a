package donorperfect

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// donorColumns are the DP columns returned by ListDonors.
var donorColumns = []string{
	"donor_id", "first_name", "middle_name", "last_name", "email",
	"address", "address2", "city", "state", "zip", "country", "gift_total",
}

// QuoteString renders s as a SQL string literal for embedding in a raw query.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func checkIdentifier(field, name string) error {
	if !identifier.MatchString(name) {
		return validationErrorf(field, "%q is not a valid identifier", name)
	}
	return nil
}

// Tables lists the user tables of the DonorPerfect database.
func (c *Client) Tables(ctx context.Context) ([]Record, error) {
	res, err := c.CallSQL(ctx, `
		SELECT
			*
		FROM
			SYSOBJECTS
		WHERE
			xtype = 'U'
	`)
	if err != nil {
		return nil, err
	}
	return Records(res), nil
}

// Columns describes the columns of table.
func (c *Client) Columns(ctx context.Context, table string) ([]Record, error) {
	if err := checkIdentifier("table", table); err != nil {
		return nil, err
	}
	res, err := c.CallSQL(ctx, "EXEC sp_columns "+table)
	if err != nil {
		return nil, err
	}
	return Records(res), nil
}

// TableRowCounts lists every non-empty table with its row count, by name.
func (c *Client) TableRowCounts(ctx context.Context) ([]Record, error) {
	res, err := c.CallSQL(ctx, `
		SELECT
			t.NAME AS TableName,
			p.rows AS RowCounts
		FROM
			sys.tables t
		INNER JOIN
			sys.indexes i ON t.OBJECT_ID = i.object_id
		INNER JOIN
			sys.partitions p ON i.object_id = p.OBJECT_ID AND i.index_id = p.index_id
		WHERE
			t.is_ms_shipped = 0
			AND p.rows > 0
		GROUP BY
			t.Name, p.Rows
		ORDER BY
			t.Name
	`)
	if err != nil {
		return nil, err
	}
	return Records(res), nil
}

// FieldValues lists the DPCODES entries of a code field, paging by code_id.
func (c *Client) FieldValues(ctx context.Context, fieldName string) ([]Record, error) {
	query := func(after string, limit int) (string, error) {
		if _, err := strconv.ParseInt(after, 10, 64); err != nil {
			return "", decodeErrorf("code_id %q is not an integer", after)
		}
		return fmt.Sprintf(`
			SELECT TOP %d
				*
			FROM
				DPCODES
			WHERE
				field_name = %s
			AND
				code_id > %s
			ORDER BY
				code_id
		`, limit, QuoteString(fieldName), after), nil
	}
	return c.ListAfter(ctx, query, "code_id", "0", c.config.PageSize)
}

// Donor returns the DP row of one donor, or false when there is none.
func (c *Client) Donor(ctx context.Context, donorID int64) (Record, bool, error) {
	res, err := c.CallSQL(ctx, fmt.Sprintf(`
		SELECT TOP 1
			*
		FROM
			DP
		WHERE donor_id = %d
	`, donorID))
	if err != nil {
		return Record{}, false, err
	}
	rows := Records(res)
	if len(rows) == 0 {
		return Record{}, false, nil
	}
	return rows[0], true, nil
}

// ListDonors lists every donor not marked inactive (IA) or deceased (DE),
// ordered by donor_id.
func (c *Client) ListDonors(ctx context.Context) ([]Record, error) {
	columns := make([]string, len(donorColumns))
	for i, col := range donorColumns {
		columns[i] = "dp." + col
	}
	query := func(start, end int) string {
		return fmt.Sprintf(`
			SELECT
				*
			FROM (
				SELECT
					ROW_NUMBER() OVER(ORDER BY dp.donor_id ASC) AS row_number,
					%s
				FROM dp
				LEFT JOIN dpudf ON dpudf.donor_id = dp.donor_id
				WHERE
					(dp.nomail_reason != 'IA'
					AND dp.nomail_reason != 'DE')
					OR dp.nomail_reason IS NULL
			) AS tmp
			WHERE tmp.row_number BETWEEN %d AND %d
		`, strings.Join(columns, ",\n\t\t\t\t\t"), start, end)
	}
	return c.ListAll(ctx, query, c.config.PageSize)
}
