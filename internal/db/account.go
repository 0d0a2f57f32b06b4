package db

import (
	"gorm.io/gorm"
)

// DeleteAccount removes a user and everything they own: events, funnels
// and goals for each of their sites, the sites themselves, their API keys,
// and finally the user row. Runs in one transaction so a partial cascade
// never persists.
func DeleteAccount(db *gorm.DB, userID uint) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var siteIDs []string
		if err := tx.Model(&Site{}).Where("user_id = ?", userID).Pluck("id", &siteIDs).Error; err != nil {
			return err
		}

		if len(siteIDs) > 0 {
			if err := tx.Where("site_id IN ?", siteIDs).Delete(&Event{}).Error; err != nil {
				return err
			}
			if err := tx.Where("site_id IN ?", siteIDs).Delete(&Funnel{}).Error; err != nil {
				return err
			}
			if err := tx.Where("site_id IN ?", siteIDs).Delete(&Goal{}).Error; err != nil {
				return err
			}
			if err := tx.Where("site_id IN ?", siteIDs).Delete(&HourlyStat{}).Error; err != nil {
				return err
			}
			if err := tx.Where("user_id = ?", userID).Delete(&Site{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("user_id = ?", userID).Delete(&APIKey{}).Error; err != nil {
			return err
		}
		return tx.Delete(&User{}, userID).Error
	})
}
