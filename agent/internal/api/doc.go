// Package api serves the JSON status API of a running rateboost agent.
//
// Routes:
//
//	GET /api/v1/health            overall state and handle counts
//	GET /api/v1/attachments       every live attachment
//	GET /api/v1/attachments/{id}  one attachment with its handles
//
// All data comes from a Source (the attach manager) at request time.
package api
