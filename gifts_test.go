package main

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountRows(accountID, username, playerID string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"account_id", "username", "display_name", "avatar_url", "player_id", "referral_code", "role"}).
		AddRow(accountID, username, username, nil, playerID, "CODE1234", "user")
}

func TestSendGiftToSelfRejected(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sender := &Account{AccountID: "acct-1", Username: "alice", PlayerID: "player-1"}

	mock.ExpectQuery("FROM accounts").
		WillReturnRows(accountRows("acct-1", "alice", "player-1"))

	_, err = SendGift(db, sender, "inst-1", "alice")
	assert.ErrorIs(t, err, errSelfGift)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendGiftUnknownRecipient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sender := &Account{AccountID: "acct-1", Username: "alice", PlayerID: "player-1"}

	mock.ExpectQuery("FROM accounts").
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "username", "display_name", "avatar_url", "player_id", "referral_code", "role"}))

	_, err = SendGift(db, sender, "inst-1", "ghost")
	assert.ErrorIs(t, err, errUserNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendGiftNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sender := &Account{AccountID: "acct-1", Username: "alice", PlayerID: "player-1"}

	mock.ExpectQuery("FROM accounts").
		WillReturnRows(accountRows("acct-2", "bob", "player-2"))
	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM player_mints").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id", "copy_number"}))
	mock.ExpectRollback()

	_, err = SendGift(db, sender, "inst-1", "bob")
	assert.ErrorIs(t, err, errNotOwned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSendGiftHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sender := &Account{AccountID: "acct-1", Username: "alice", DisplayName: "Alice", PlayerID: "player-1"}

	mock.ExpectQuery("FROM accounts").
		WillReturnRows(accountRows("acct-2", "bob", "player-2"))
	mock.ExpectBegin()
	mock.ExpectQuery("DELETE FROM player_mints").
		WithArgs("inst-1", "player-1").
		WillReturnRows(sqlmock.NewRows([]string{"mint_id", "copy_number"}).AddRow("golden-gear", 7))
	mock.ExpectExec("INSERT INTO gifts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnResult(sqlmock.NewResult(1, 1))

	gift, err := SendGift(db, sender, "inst-1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "player-2", gift.RecipientPlayerID)
	assert.Equal(t, "golden-gear", gift.MintID)
	assert.Equal(t, 7, gift.CopyNumber)
	assert.Equal(t, GiftStatusPending, gift.Status)

	require.NoError(t, mock.ExpectationsWereMet())
}

func giftRow(giftID, sender, recipient, status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"gift_id", "sender_player_id", "recipient_player_id", "instance_id", "mint_id", "copy_number", "status"}).
		AddRow(giftID, sender, recipient, "inst-1", "golden-gear", 7, status)
}

func TestClaimGiftHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM gifts").
		WillReturnRows(giftRow("gift-1", "player-1", "player-2", GiftStatusPending))
	mock.ExpectExec("INSERT INTO player_mints").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE gifts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	instance, err := ClaimGift(db, "player-2", "gift-1")
	require.NoError(t, err)
	assert.Equal(t, "inst-1", instance.InstanceID)
	assert.Equal(t, "golden-gear", instance.MintID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGiftAlreadyClaimed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM gifts").
		WillReturnRows(giftRow("gift-1", "player-1", "player-2", GiftStatusClaimed))
	mock.ExpectRollback()

	_, err = ClaimGift(db, "player-2", "gift-1")
	assert.ErrorIs(t, err, errAlreadyClaimed)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGiftWrongRecipient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM gifts").
		WillReturnRows(giftRow("gift-1", "player-1", "player-2", GiftStatusPending))
	mock.ExpectRollback()

	_, err = ClaimGift(db, "player-3", "gift-1")
	assert.ErrorIs(t, err, errNotOwned)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimGiftUnknownGift(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM gifts").
		WillReturnRows(sqlmock.NewRows([]string{"gift_id", "sender_player_id", "recipient_player_id", "instance_id", "mint_id", "copy_number", "status"}))
	mock.ExpectRollback()

	_, err = ClaimGift(db, "player-2", "gift-404")
	assert.ErrorIs(t, err, errGiftNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}
