package donorperfect

import (
	"context"
	"fmt"
)

// WindowQuery renders the SQL selecting row numbers start through end,
// inclusive.
type WindowQuery func(start, end int) string

// KeysetQuery renders the SQL selecting at most limit rows whose key sorts
// after the cursor value. It fails when the cursor cannot be embedded safely.
type KeysetQuery func(after string, limit int) (string, error)

// ListAll fetches every row of a row-number windowed query. Pages are
// requested one at a time; a page shorter than pageSize ends the loop, so an
// exact multiple of pageSize costs one extra, empty request.
func (c *Client) ListAll(ctx context.Context, query WindowQuery, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		return nil, validationErrorf("pageSize", "must be positive, got %d", pageSize)
	}

	var (
		all   []Record
		start = 1
	)
	for {
		page, err := c.page(ctx, query(start, start+pageSize-1))
		if err != nil {
			return nil, fmt.Errorf("rows %d-%d: %w", start, start+pageSize-1, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		start += pageSize
	}
}

// ListAfter fetches every row of a keyset-paged query. The cursor starts at
// first and moves to the key column of the last row of each full page.
func (c *Client) ListAfter(ctx context.Context, query KeysetQuery, key, first string, pageSize int) ([]Record, error) {
	if pageSize <= 0 {
		return nil, validationErrorf("pageSize", "must be positive, got %d", pageSize)
	}

	var (
		all   []Record
		after = first
	)
	for {
		sql, err := query(after, pageSize)
		if err != nil {
			return nil, err
		}
		page, err := c.page(ctx, sql)
		if err != nil {
			return nil, fmt.Errorf("rows after %s=%s: %w", key, after, err)
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
		next, ok := page[len(page)-1].Get(key)
		if !ok || next == after {
			return nil, decodeErrorf("page did not advance past %s=%q", key, after)
		}
		after = next
	}
}

func (c *Client) page(ctx context.Context, sql string) ([]Record, error) {
	res, err := c.CallSQL(ctx, sql)
	if err != nil {
		return nil, err
	}
	if _, ok := res.(ScalarResult); ok {
		return nil, decodeErrorf("paged query returned a scalar")
	}
	return Records(res), nil
}
