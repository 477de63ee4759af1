package slashbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	chainStartToken = "\x02"
	chainEndToken   = "\x03"

	chainMinSentenceWords = 3
	chainMaxSentenceWords = 50
)

var (
	// ErrChainEmpty indicates the chain has no training data at all
	ErrChainEmpty = errors.New("chain has no training data")

	// ErrChainNoSeed indicates the requested seed word was never seen
	// during training
	ErrChainNoSeed = errors.New("seed word not in chain")
)

// Chain is an order-1 Markov chain over whitespace-separated tokens.
// Transitions are stored as frequency counts so chains can be merged
// with Combine without losing weighting.
type Chain struct {
	// Transitions maps a token to the tokens that followed it, with
	// occurrence counts
	Transitions map[string]map[string]int `json:"transitions"`
}

func NewChain() *Chain {
	return &Chain{Transitions: map[string]map[string]int{}}
}

// Train folds one sentence into the chain.
func (c *Chain) Train(text string) {
	words := strings.Fields(text)
	if len(words) < chainMinSentenceWords {
		return
	}
	prev := chainStartToken
	for _, w := range words {
		c.addTransition(prev, w)
		prev = w
	}
	c.addTransition(prev, chainEndToken)
}

func (c *Chain) addTransition(from, to string) {
	next, ok := c.Transitions[from]
	if !ok {
		next = map[string]int{}
		c.Transitions[from] = next
	}
	next[to]++
}

// Combine merges another chain's frequency table into this one.
func (c *Chain) Combine(other *Chain) {
	if other == nil {
		return
	}
	for from, nexts := range other.Transitions {
		for to, count := range nexts {
			next, ok := c.Transitions[from]
			if !ok {
				next = map[string]int{}
				c.Transitions[from] = next
			}
			next[to] += count
		}
	}
}

// Generate produces one sentence from the chain. If seed is non-empty,
// the sentence starts with the seed word, which must have been seen in
// training.
func (c *Chain) Generate(rng *rand.Rand, seed string) (string, error) {
	if len(c.Transitions) == 0 {
		return "", ErrChainEmpty
	}

	current := chainStartToken
	var words []string
	if seed != "" {
		if _, ok := c.Transitions[seed]; !ok {
			return "", fmt.Errorf("%w: %q", ErrChainNoSeed, seed)
		}
		current = seed
		words = append(words, seed)
	}

	for len(words) < chainMaxSentenceWords {
		next := c.pick(rng, current)
		if next == "" || next == chainEndToken {
			break
		}
		words = append(words, next)
		current = next
	}

	if len(words) == 0 {
		return "", ErrChainEmpty
	}
	return strings.Join(words, " "), nil
}

// pick selects the next token weighted by observed frequency.
func (c *Chain) pick(rng *rand.Rand, from string) string {
	nexts, ok := c.Transitions[from]
	if !ok || len(nexts) == 0 {
		return ""
	}
	total := 0
	for _, count := range nexts {
		total += count
	}
	n := rng.Intn(total)
	for to, count := range nexts {
		n -= count
		if n < 0 {
			return to
		}
	}
	return ""
}

// Tokens returns every token the chain has seen as a transition source,
// excluding the sentence markers.
func (c *Chain) Tokens() []string {
	tokens := make([]string, 0, len(c.Transitions))
	for from := range c.Transitions {
		if from == chainStartToken || from == chainEndToken {
			continue
		}
		tokens = append(tokens, from)
	}
	return tokens
}

// GuildChain is the persisted form of a guild's Markov chain.
//
//nolint:lll // struct tags can't be split
type GuildChain struct {
	// GuildID the chain was learned from. The empty string holds the
	// global chain used in DMs.
	GuildID string `json:"guild_id" gorm:"primaryKey;type:string"`

	// Model is the JSON-serialized Chain
	Model string `json:"model" gorm:"type:string"`

	ModelUnixTime
}

// GuildMessage is a message collected from the gateway, pending the
// next scheduled chain retrain.
type GuildMessage struct {
	ModelUintID
	GuildID   string `json:"guild_id" gorm:"index;type:string"`
	Content   string `json:"content" gorm:"type:string"`
	CreatedAt int64  `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
}

// ChainStore holds the in-memory chains for all guilds, backed by the
// guild_chains table.
type ChainStore struct {
	mu     sync.RWMutex
	chains map[string]*Chain
	rng    *rand.Rand
	logger *slog.Logger
}

func NewChainStore(logger *slog.Logger) *ChainStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChainStore{
		chains: map[string]*Chain{},
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: logger.With(loggerNameKey, "markov"),
	}
}

// Load populates the store from the guild_chains table.
func (s *ChainStore) Load(db *gorm.DB) error {
	var rows []GuildChain
	if err := db.Find(&rows).Error; err != nil {
		return fmt.Errorf("error loading guild chains: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = map[string]*Chain{}
	for _, row := range rows {
		chain := NewChain()
		if err := json.Unmarshal([]byte(row.Model), chain); err != nil {
			s.logger.Error(
				"error unmarshaling guild chain",
				"guild_id", row.GuildID,
				tint.Err(err),
			)
			continue
		}
		s.chains[row.GuildID] = chain
	}
	return nil
}

// Chain returns the chain for the given guild, creating an empty one
// if none exists yet.
func (s *ChainStore) Chain(guildID string) *Chain {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.chains[guildID]
	if !ok {
		chain = NewChain()
		s.chains[guildID] = chain
	}
	return chain
}

// Generate produces a sentence from the given guild's chain. Takes
// the write lock because the shared rand source is not
// concurrency-safe.
func (s *ChainStore) Generate(guildID string, seed string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chain, ok := s.chains[guildID]
	if !ok {
		return "", ErrChainEmpty
	}
	return chain.Generate(s.rng, seed)
}

// Intn exposes the store's rand source under its lock.
func (s *ChainStore) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

// Train folds a sentence into the given guild's chain.
func (s *ChainStore) Train(guildID string, text string) {
	chain := s.Chain(guildID)
	s.mu.Lock()
	defer s.mu.Unlock()
	chain.Train(text)
}

// Combine merges a freshly trained chain into the guild's existing one.
func (s *ChainStore) Combine(guildID string, other *Chain) {
	chain := s.Chain(guildID)
	s.mu.Lock()
	defer s.mu.Unlock()
	chain.Combine(other)
}

// Persist writes the given guild's chain back to the database.
func (s *ChainStore) Persist(ctx context.Context, db DBI, guildID string) error {
	s.mu.RLock()
	chain, ok := s.chains[guildID]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	model, err := json.Marshal(chain)
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("error marshaling chain: %w", err)
	}

	row := GuildChain{GuildID: guildID, Model: string(model)}
	db.Lock()
	defer db.Unlock()
	return db.DB().WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"model", "updated_at"}),
	}).Create(&row).Error
}

// retrainChains drains collected guild messages into per-guild chains
// and persists the updated models. Runs on the scheduler.
func (b *Bot) retrainChains(ctx context.Context) error {
	log := b.logger.With(loggerNameKey, "markov")

	var pending []GuildMessage
	err := b.writeDB.DB().WithContext(ctx).Order("id asc").Find(&pending).Error
	if err != nil {
		return fmt.Errorf("error loading pending guild messages: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	fresh := map[string]*Chain{}
	for _, msg := range pending {
		chain, ok := fresh[msg.GuildID]
		if !ok {
			chain = NewChain()
			fresh[msg.GuildID] = chain
		}
		chain.Train(msg.Content)
	}

	for guildID, chain := range fresh {
		b.chains.Combine(guildID, chain)
		if persistErr := b.chains.Persist(ctx, b.writeDB, guildID); persistErr != nil {
			log.ErrorContext(
				ctx,
				"error persisting guild chain",
				"guild_id", guildID,
				tint.Err(persistErr),
			)
		}
	}

	lastID := pending[len(pending)-1].ID
	if _, delErr := b.writeDB.Delete(&GuildMessage{}, "id <= ?", lastID); delErr != nil {
		return fmt.Errorf("error pruning trained messages: %w", delErr)
	}

	log.InfoContext(
		ctx,
		"retrained guild chains",
		"messages", len(pending),
		"guilds", len(fresh),
	)
	return nil
}
