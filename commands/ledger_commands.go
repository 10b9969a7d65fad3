package commands

import (
	"hms/constants"
	"hms/errors"
	"hms/models"

	"gorm.io/gorm"
)

// LedgerCommand định nghĩa interface cho các command trên sổ quỹ
type LedgerCommand interface {
	Execute() error
}

// CreateEntryCommand command để tạo bút toán mới
type CreateEntryCommand struct {
	entry *models.LedgerEntry
	db    *gorm.DB
}

func NewCreateEntryCommand(entry *models.LedgerEntry, db *gorm.DB) *CreateEntryCommand {
	return &CreateEntryCommand{
		entry: entry,
		db:    db,
	}
}

func (c *CreateEntryCommand) Execute() error {
	if err := c.entry.Validate(); err != nil {
		return err
	}
	return c.db.Create(c.entry).Error
}

// UpdateEntryCommand command để cập nhật bút toán
type UpdateEntryCommand struct {
	entry *models.LedgerEntry
	db    *gorm.DB
}

func NewUpdateEntryCommand(entry *models.LedgerEntry, db *gorm.DB) *UpdateEntryCommand {
	return &UpdateEntryCommand{
		entry: entry,
		db:    db,
	}
}

func (c *UpdateEntryCommand) Execute() error {
	if err := c.entry.Validate(); err != nil {
		return err
	}
	return c.db.Save(c.entry).Error
}

// DeleteEntryCommand command để xóa bút toán
type DeleteEntryCommand struct {
	entryID uint
	db      *gorm.DB
}

func NewDeleteEntryCommand(entryID uint, db *gorm.DB) *DeleteEntryCommand {
	return &DeleteEntryCommand{
		entryID: entryID,
		db:      db,
	}
}

func (c *DeleteEntryCommand) Execute() error {
	return c.db.Delete(&models.LedgerEntry{}, c.entryID).Error
}

// ShiftAccountCommand command chuyển bút toán sang tài khoản quyết toán kia
type ShiftAccountCommand struct {
	entry   *models.LedgerEntry
	account string
	db      *gorm.DB
}

func NewShiftAccountCommand(entry *models.LedgerEntry, account string, db *gorm.DB) *ShiftAccountCommand {
	return &ShiftAccountCommand{
		entry:   entry,
		account: account,
		db:      db,
	}
}

func (c *ShiftAccountCommand) Execute() error {
	if c.account != constants.AccountA && c.account != constants.AccountB {
		return errors.NewAppError(errors.ErrCodeValidation, "Tài khoản quyết toán phải là A hoặc B", nil)
	}
	c.entry.Account = c.account
	return c.db.Save(c.entry).Error
}
