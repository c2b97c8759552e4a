package donorperfect

import (
	"context"
	"fmt"
)

// Params are the named arguments of a procedure call, without the @ prefix.
type Params map[string]any

func (p Params) clone() Params {
	out := make(Params, len(p)+2)
	for k, v := range p {
		out[k] = v
	}
	return out
}

// SearchDonors runs dp_donorsearch and returns the matching donors.
func (c *Client) SearchDonors(ctx context.Context, p Params) ([]Record, error) {
	return c.rows(ctx, "dp_donorsearch", p)
}

// SaveDonor runs dp_savedonor and returns the donor id. A donor_id of 0
// creates a new donor. nomail is sent as N unless it is Y, and
// receipt_delivery defaults to L.
func (c *Client) SaveDonor(ctx context.Context, p Params) (int64, error) {
	p = p.clone()
	if nomail, _ := p["nomail"].(string); nomail != "Y" {
		p["nomail"] = "N"
	}
	if p["receipt_delivery"] == nil {
		p["receipt_delivery"] = "L"
	}
	return c.save(ctx, "dp_savedonor", p)
}

// Gifts returns the gifts of a donor.
func (c *Client) Gifts(ctx context.Context, donorID int64) ([]Record, error) {
	return c.rows(ctx, "dp_gifts", Params{"donor_id": donorID})
}

// SaveGift runs dp_savegift and returns the gift id.
func (c *Client) SaveGift(ctx context.Context, p Params) (int64, error) {
	return c.save(ctx, "dp_savegift", p)
}

// SavePledge runs dp_savepledge and returns the pledge gift id.
func (c *Client) SavePledge(ctx context.Context, p Params) (int64, error) {
	return c.save(ctx, "dp_savepledge", p)
}

// SaveContact runs dp_savecontact and returns the contact id.
func (c *Client) SaveContact(ctx context.Context, p Params) (int64, error) {
	return c.save(ctx, "dp_savecontact", p)
}

// SaveAddress runs dp_saveaddress and returns the address id.
func (c *Client) SaveAddress(ctx context.Context, p Params) (int64, error) {
	return c.save(ctx, "dp_saveaddress", p)
}

// SaveUDF sets a user defined field on the record matching_id names.
func (c *Client) SaveUDF(ctx context.Context, p Params) error {
	_, err := c.Procedure(ctx, "dp_save_udf_xml", p)
	return err
}

// SaveFlag sets a flag on a donor.
func (c *Client) SaveFlag(ctx context.Context, donorID int64, flag string) error {
	_, err := c.Procedure(ctx, "dp_saveflag_xml", Params{"donor_id": donorID, "flag": flag})
	return err
}

func (c *Client) rows(ctx context.Context, name string, p Params) ([]Record, error) {
	res, err := c.Procedure(ctx, name, p)
	if err != nil {
		return nil, err
	}
	if _, ok := res.(ScalarResult); ok {
		return nil, decodeErrorf("%s returned a scalar, expected rows", name)
	}
	return Records(res), nil
}

func (c *Client) save(ctx context.Context, name string, p Params) (int64, error) {
	res, err := c.Procedure(ctx, name, p)
	if err != nil {
		return 0, err
	}
	id, ok := res.(ScalarResult)
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, decodeErrorf("expected an id, got a %s result", res.Kind()))
	}
	return id.ID, nil
}
