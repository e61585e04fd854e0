// Package api provides HTTP REST API handlers for the tic-tac-toe server.
//
// Endpoints:
//
// Liveness:
//   - GET / - Plain text banner
//   - GET /api/test - {status, message}
//
// Games:
//   - POST /api/games/create - Create a game and return its id
//   - POST /api/games/join/{gameId} - Check that a game exists and has a free seat
//   - GET /api/games - List live games
//   - GET /api/games/{gameId} - Get one game
//
// Realtime and operations:
//   - GET /ws - WebSocket upgrade, handled by the realtime gateway
//   - GET /metrics - Prometheus metrics
//
// Every JSON response carries a "success" flag; failures add an "error"
// message. Unknown games answer 404, full games and rule violations 400.
// CORS is open to every origin.
package api
