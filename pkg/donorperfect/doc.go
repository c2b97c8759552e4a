// Package donorperfect is a client for the DonorPerfect XML API.
//
// The API is a single endpoint driven by query string. A call either names a
// predefined procedure with an ordered @name=value parameter list, or sends a
// raw SQL statement as the action. Replies are a loose XML document that
// encodes an error, a created id, one record or a set of rows; Decode maps
// them onto the Result variants.
//
//	client, err := donorperfect.New(&donorperfect.Config{APIKey: key})
//	if err != nil {
//		return err
//	}
//	donors, err := client.SearchDonors(ctx, donorperfect.Params{"last_name": "Smith"})
//
// Procedure parameter rules live in an embedded catalog (see DefaultCatalog)
// and can be replaced with WithCatalog.
package donorperfect
