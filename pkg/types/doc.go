// Package types holds the wire types shared by the pspwatch server and agent.
//
// Transaction is the JSON body of POST /api/transactions and one element of
// the bulk endpoint's "transactions" array. Fields arrive as loosely typed
// JSON and are validated by the server before they reach storage.
package types
