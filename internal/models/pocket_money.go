package models

import "time"

// PocketMoney represents an allowance grant from a parent to a child
type PocketMoney struct {
	ID         string    `json:"id" bson:"_id"`
	ChildID    string    `json:"child_id" bson:"childId"`
	Amount     float64   `json:"amount" bson:"amount"`
	GrantedBy  string    `json:"granted_by" bson:"grantedBy"`
	OccurredAt time.Time `json:"occurred_at" bson:"occurredAt"`
}
