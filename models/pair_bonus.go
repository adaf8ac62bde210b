package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PairBonus is one ledger entry recording a pair-bonus credit to a member.
// EventID ties the entry back to the registration event whose propagation
// produced it; a (referralCode, eventID) pair appears at most once.
type PairBonus struct {
	ID           primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	MemberID     primitive.ObjectID `json:"memberId" bson:"memberId"`
	ReferralCode string             `json:"referralCode" bson:"referralCode"`
	EventID      string             `json:"eventId" bson:"eventId"`
	Pairs        int                `json:"pairs" bson:"pairs"`
	Amount       float64            `json:"amount" bson:"amount"`
	CreatedAt    time.Time          `json:"createdAt" bson:"createdAt"`
}
