/*
Copyright © 2026 Bendik Nordeng
*/

package main

import (
	_ "embed"
	"encoding/json"

	"github.com/bendiknordeng/glass-sub003/game"
)

//go:embed assets/challenges.json
var builtinChallengesJSON []byte

// loadBuiltinChallenges parses the embedded challenge pack. The pack ships
// inside the binary, so a parse failure is a build defect and fatal.
func loadBuiltinChallenges() ([]game.Challenge, error) {
	var challenges []game.Challenge
	if err := json.Unmarshal(builtinChallengesJSON, &challenges); err != nil {
		return nil, err
	}
	return challenges, nil
}
