package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

func (u *UserAccount) BeforeCreate(*gorm.DB) error       { ensureID(&u.ID); return nil }
func (t *PackTemplate) BeforeCreate(*gorm.DB) error      { ensureID(&t.ID); return nil }
func (l *LedgerTransaction) BeforeCreate(*gorm.DB) error { ensureID(&l.ID); return nil }
func (b *Bid) BeforeCreate(*gorm.DB) error               { ensureID(&b.ID); return nil }
func (p *Pack) BeforeCreate(*gorm.DB) error              { ensureID(&p.ID); return nil }
func (c *Collectible) BeforeCreate(*gorm.DB) error       { ensureID(&c.ID); return nil }
func (p *Payment) BeforeCreate(*gorm.DB) error           { ensureID(&p.ID); return nil }
func (n *Notification) BeforeCreate(*gorm.DB) error      { ensureID(&n.ID); return nil }
