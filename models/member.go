// models/member.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Member is one registered account together with its slot in the binary
// placement tree. All tree relationships are addressed by referral code,
// not by ObjectID.
type Member struct {
	ID       primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	Email    string             `json:"email" bson:"email"`
	Password string             `json:"password,omitempty" bson:"password"`
	FullName string             `json:"fullName" bson:"fullName"`
	Phone    string             `json:"phone,omitempty" bson:"phone,omitempty"`
	IsActive bool               `json:"isActive" bson:"isActive"`

	// Tree placement. UplineCode is set once at placement time and never
	// changes. LeftChildCode/RightChildCode transition from empty to
	// occupied exactly once and are never cleared.
	ReferralCode   string `json:"referralCode" bson:"referralCode"`
	UplineCode     string `json:"uplineCode,omitempty" bson:"uplineCode,omitempty"`
	LeftChildCode  string `json:"leftChildCode,omitempty" bson:"leftChildCode,omitempty"`
	RightChildCode string `json:"rightChildCode,omitempty" bson:"rightChildCode,omitempty"`

	// Counters and income, maintained by commission propagation only.
	// PairsCount equals min(LeftCount, RightCount) once all in-flight
	// propagations beneath this member have completed.
	LeftCount         int     `json:"leftCount" bson:"leftCount"`
	RightCount        int     `json:"rightCount" bson:"rightCount"`
	PairsCount        int     `json:"pairsCount" bson:"pairsCount"`
	PromotionalIncome float64 `json:"promotionalIncome" bson:"promotionalIncome"`
	TotalIncome       float64 `json:"totalIncome" bson:"totalIncome"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"fullName" validate:"required"`
	Phone    string `json:"phone,omitempty"`
	// Code of the member who referred this signup. Optional.
	ReferrerCode string `json:"referrerCode,omitempty"`
	// Explicit placement request: both must be supplied together.
	UplineCode string `json:"uplineCode,omitempty"`
	Side       string `json:"side,omitempty" validate:"omitempty,oneof=left right"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Member       Member `json:"member"`
}

// TreeNode is the bounded-depth subtree view returned by the network
// endpoints.
type TreeNode struct {
	ReferralCode string    `json:"referralCode"`
	FullName     string    `json:"fullName"`
	LeftCount    int       `json:"leftCount"`
	RightCount   int       `json:"rightCount"`
	PairsCount   int       `json:"pairsCount"`
	Left         *TreeNode `json:"left,omitempty"`
	Right        *TreeNode `json:"right,omitempty"`
}

type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
