// Package petrovisor is a client for the PetroVisor web API.
//
// A Client is bound to one workspace. It authenticates against the token
// endpoint named by a discovery document, refreshes its token when it
// expires, and retries failed requests: once after a 401 with a fresh
// token, and up to three attempts with a fixed delay after a 400 or 404.
//
// Operations are grouped by resource:
//
//	c.Items(petrovisor.ItemScope).Names(ctx)
//	c.Signals().LoadSignalsData(ctx, petrovisor.SignalsDataOptions{...})
//	c.RefTables().LoadData(ctx, "Rates", petrovisor.RefTableFilter{})
//	c.PivotTables().Load(ctx, "Monthly", petrovisor.PivotTableOptions{})
//
// Tabular results are returned as *frame.Frame values.
//
// An error response that survives the retries is handled per the
// client's ErrorPolicy. The default, ErrorsCoerce, logs a warning and
// returns an empty result with a nil error; ErrorsRaise returns an
// *APIError instead.
package petrovisor
