// Copyright 2025 Octank Insurance
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Coverage describes a member's policy coverage snapshot.
type Coverage struct {
	Type               string `json:"type"`
	LiabilityLimit     string `json:"liability_limit"`
	Deductible         int    `json:"deductible"`
	OutOfPocketMax     int    `json:"out_of_pocket_max"`
	UninsuredMotorist  bool   `json:"uninsured_motorist"`
	RentalCoverage     bool   `json:"rental_coverage"`
	RoadsideAssistance bool   `json:"roadside_assistance"`
}

// Member is an immutable profile snapshot from the member directory.
type Member struct {
	MemberID       string           `json:"member_id"`
	Name           string           `json:"name"`
	PolicyNumber   string           `json:"policy_number"`
	PolicyType     string           `json:"policy_type"`
	Phone          string           `json:"phone"`
	Email          string           `json:"email"`
	EffectiveDate  string           `json:"effective_date"`
	ExpirationDate string           `json:"expiration_date"`
	Coverage       Coverage         `json:"coverage"`
	Vehicles       []map[string]any `json:"vehicles,omitempty"`
}

// MemberSummary is the listing shape exposed by the members endpoint.
type MemberSummary struct {
	MemberID     string `json:"member_id"`
	Name         string `json:"name"`
	PolicyNumber string `json:"policy_number"`
	PolicyType   string `json:"policy_type"`
}

// MemberDirectory is the read-only member lookup capability. Loaded once
// at startup; safe for concurrent reads.
type MemberDirectory struct {
	members map[string]Member
}

// LoadMemberDirectory reads members.json from dataDir.
func LoadMemberDirectory(dataDir string) (*MemberDirectory, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "members.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read members data: %w", err)
	}

	var file struct {
		Members map[string]Member `json:"members"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse members data: %w", err)
	}

	return &MemberDirectory{members: file.Members}, nil
}

// NewMemberDirectory builds a directory from an in-memory map (tests,
// seed tooling).
func NewMemberDirectory(members map[string]Member) *MemberDirectory {
	if members == nil {
		members = make(map[string]Member)
	}
	return &MemberDirectory{members: members}
}

// Get returns the member profile, or ErrMemberNotFound.
func (d *MemberDirectory) Get(memberID string) (Member, error) {
	m, ok := d.members[memberID]
	if !ok {
		return Member{}, fmt.Errorf("%w: %s", ErrMemberNotFound, memberID)
	}
	return m, nil
}

// List returns summaries of every known member, ordered by ID.
func (d *MemberDirectory) List() []MemberSummary {
	out := make([]MemberSummary, 0, len(d.members))
	for _, m := range d.members {
		out = append(out, MemberSummary{
			MemberID:     m.MemberID,
			Name:         m.Name,
			PolicyNumber: m.PolicyNumber,
			PolicyType:   m.PolicyType,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MemberID < out[j].MemberID })
	return out
}

// TimelineEvent is one step in a claim's processing history.
type TimelineEvent struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Event  string `json:"event"`
}

// Adjuster identifies the human adjuster assigned to a claim.
type Adjuster struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// Claim is one insurance claim record.
type Claim struct {
	ClaimID            string          `json:"claim_id"`
	ConfirmationNumber string          `json:"confirmation_number,omitempty"`
	MemberID           string          `json:"member_id"`
	PolicyNumber       string          `json:"policy_number"`
	Status             string          `json:"status"`
	Type               string          `json:"type"`
	FiledDate          string          `json:"filed_date"`
	DateOfLoss         string          `json:"date_of_loss"`
	Description        string          `json:"description"`
	Location           string          `json:"location,omitempty"`
	Injuries           bool            `json:"injuries,omitempty"`
	InjuryDescription  string          `json:"injury_description,omitempty"`
	PoliceReportNumber string          `json:"police_report_number,omitempty"`
	EstimatedDamage    float64         `json:"estimated_damage,omitempty"`
	ApprovedAmount     float64         `json:"approved_amount,omitempty"`
	Adjuster           *Adjuster       `json:"adjuster,omitempty"`
	Timeline           []TimelineEvent `json:"timeline,omitempty"`
	NextSteps          []string        `json:"next_steps,omitempty"`
}

// ClaimsStore holds claim records. Reads dominate; new FNOL filings
// append under the write lock.
type ClaimsStore struct {
	mu     sync.RWMutex
	claims map[string]Claim
}

// LoadClaimsStore reads claims.json from dataDir.
func LoadClaimsStore(dataDir string) (*ClaimsStore, error) {
	raw, err := os.ReadFile(filepath.Join(dataDir, "claims.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read claims data: %w", err)
	}

	var file struct {
		Claims map[string]Claim `json:"claims"`
	}
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse claims data: %w", err)
	}

	return &ClaimsStore{claims: file.Claims}, nil
}

// NewClaimsStore builds a store from an in-memory map.
func NewClaimsStore(claims map[string]Claim) *ClaimsStore {
	if claims == nil {
		claims = make(map[string]Claim)
	}
	return &ClaimsStore{claims: claims}
}

// Get returns a claim by ID.
func (s *ClaimsStore) Get(claimID string) (Claim, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.claims[claimID]
	return c, ok
}

// ForMember returns every claim belonging to memberID, ordered by claim ID.
func (s *ClaimsStore) ForMember(memberID string) []Claim {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Claim
	for _, c := range s.claims {
		if c.MemberID == memberID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClaimID < out[j].ClaimID })
	return out
}

// Add records a newly filed claim.
func (s *ClaimsStore) Add(c Claim) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[c.ClaimID] = c
}
