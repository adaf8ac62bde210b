package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rsleiman/souqly_backend/config"
	"github.com/rsleiman/souqly_backend/models"
	"github.com/rsleiman/souqly_backend/network"
)

// MemberRepository is the MongoDB-backed network.Directory. The slot
// claim and the ledger write are both single conditional UpdateOne
// calls, so concurrent registrations racing on the same document get
// exactly one winner.
type MemberRepository struct {
	members *mongo.Collection
	bonuses *mongo.Collection
}

func NewMemberRepository(db *mongo.Client) *MemberRepository {
	return &MemberRepository{
		members: config.GetCollection(db, "members"),
		bonuses: config.GetCollection(db, "pairBonuses"),
	}
}

func (r *MemberRepository) FindByCode(ctx context.Context, code string) (*models.Member, error) {
	var member models.Member
	err := r.members.FindOne(ctx, bson.M{"referralCode": code}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, network.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// FindByEmail is used by the login flow, not by the engine.
func (r *MemberRepository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var member models.Member
	err := r.members.FindOne(ctx, bson.M{"email": email}).Decode(&member)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, network.ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) Insert(ctx context.Context, member *models.Member) error {
	result, err := r.members.InsertOne(ctx, member)
	if err != nil {
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		member.ID = oid
	}
	return nil
}

func (r *MemberRepository) ClaimSlot(ctx context.Context, parentCode string, side network.Side, childCode string) error {
	field := "leftChildCode"
	if side == network.SideRight {
		field = "rightChildCode"
	}

	// Conditional write: only an empty (or absent) slot can be claimed.
	filter := bson.M{
		"referralCode": parentCode,
		"$or": []bson.M{
			{field: ""},
			{field: bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$set": bson.M{
		field:       childCode,
		"updatedAt": time.Now(),
	}}

	result, err := r.members.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		// Either the parent does not exist or the slot is taken.
		count, err := r.members.CountDocuments(ctx, bson.M{"referralCode": parentCode})
		if err != nil {
			return err
		}
		if count == 0 {
			return network.ErrNotFound
		}
		return network.ErrSlotOccupied
	}
	return nil
}

func (r *MemberRepository) SetUpline(ctx context.Context, code, uplineCode string) error {
	result, err := r.members.UpdateOne(ctx,
		bson.M{"referralCode": code},
		bson.M{"$set": bson.M{
			"uplineCode": uplineCode,
			"updatedAt":  time.Now(),
		}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return network.ErrNotFound
	}
	return nil
}

func (r *MemberRepository) ApplyLedger(ctx context.Context, code string, guard network.LedgerGuard, update network.LedgerUpdate) error {
	// The guard values were read in the same per-ancestor transaction;
	// if any of them moved since, the write must not apply.
	filter := bson.M{
		"referralCode": code,
		"leftCount":    guard.LeftCount,
		"rightCount":   guard.RightCount,
		"pairsCount":   guard.PairsCount,
	}
	mutation := bson.M{
		"$set": bson.M{
			"leftCount":  update.LeftCount,
			"rightCount": update.RightCount,
			"pairsCount": update.PairsCount,
			"updatedAt":  time.Now(),
		},
	}
	if update.IncomeDelta > 0 {
		mutation["$inc"] = bson.M{
			"promotionalIncome": update.IncomeDelta,
			"totalIncome":       update.IncomeDelta,
		}
	}

	result, err := r.members.UpdateOne(ctx, filter, mutation)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		count, err := r.members.CountDocuments(ctx, bson.M{"referralCode": code})
		if err != nil {
			return err
		}
		if count == 0 {
			return network.ErrNotFound
		}
		return network.ErrConflict
	}
	return nil
}

func (r *MemberRepository) InsertPairBonus(ctx context.Context, entry *models.PairBonus) error {
	_, err := r.bonuses.InsertOne(ctx, entry)
	return err
}

// ListPairBonuses returns the most recent bonus ledger entries for a
// member, newest first.
func (r *MemberRepository) ListPairBonuses(ctx context.Context, code string, limit int64) ([]models.PairBonus, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.bonuses.Find(ctx, bson.M{"referralCode": code}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.PairBonus
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
