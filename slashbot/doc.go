// Package slashbot implements a multi-purpose Discord slash-command bot.
//
// Slashbot connects to the Discord gateway, registers its slash commands
// on startup, and dispatches interactions to handlers for weather
// lookups, reminders, Markov-chain sentence generation, AI chat
// completions, Wolfram|Alpha queries, image board searches, news
// headlines, and a handful of fun commands. User settings such as a
// default weather location are persisted per Discord user.
//
// Key components of the package include:
//
//   - Bot: The main struct that ties the gateway session, command
//     registry, scheduler, adapters, and database together.
//   - Discord: Wraps the discordgo session and gateway event handlers.
//   - Registry: Holds the slash-command definitions and their handlers.
//   - Scheduler: Runs the periodic jobs (reminder sweeps, Markov
//     retraining, log pruning, runtime config refresh).
//   - ChainStore: Per-guild Markov chains, trained from observed guild
//     messages and persisted to the database.
//   - GenerationQueue: Serializes /generate_text requests through the
//     rate-limited OpenAI client.
//   - API: A small HTTP server exposing health, status, and admin
//     pause/resume/quit endpoints.
//
// Persistence is handled through GORM with either SQLite or Postgres.
// Runtime behavior (paused state, custom status, error messages, log
// levels) lives in a database row so it can be changed without a
// restart.
package slashbot
