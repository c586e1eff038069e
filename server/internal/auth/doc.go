// Package auth enforces the optional static API key on both server surfaces.
//
// New(mode, header, key) builds a Checker. When mode != "apikey" or key == ""
// every request passes (local development with auth disabled). Otherwise:
//   - UnaryInterceptor and StreamInterceptor reject gRPC calls whose metadata
//     lacks the key with codes.Unauthenticated.
//   - HTTPMiddleware rejects HTTP requests with 401 and the standard error
//     envelope. The key is read from the header or, for browser websocket
//     clients that cannot set headers, the api_key query parameter.
//
// Keys are compared in constant time.
package auth
