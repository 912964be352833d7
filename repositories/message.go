package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"folio-chat/domain"
	"folio-chat/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	messagePrefix     = "msg:"
	messageIDPrefix   = "msgid:"
	userConvPrefix    = "userconv:"
	maxTimestampSeek  = "9999999999999999999"
	timestampKeyWidth = 19
)

// BadgerMessageRepository stores messages in BadgerDB.
//
// Keys:
//
//	msg:{conversation}:{unix_nano_padded}:{uuid}  -> message (JSON)
//	msgid:{uuid}                                  -> primary key of the message
//	userconv:{user}:{conversation}                -> index of the user's conversations
//
// The 19-digit zero padding keeps a conversation sorted chronologically, the
// uuid breaks ties between messages created in the same nanosecond.
type BadgerMessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewBadgerMessageRepository(db *badger.DB, log *slog.Logger) *BadgerMessageRepository {
	return &BadgerMessageRepository{db: db, log: log}
}

type userConversation struct {
	Owner domain.UserID         `json:"owner"`
	Peer  domain.UserID         `json:"peer"`
	Conv  domain.ConversationID `json:"conversationId"`
}

func messageKey(m domain.Message) []byte {
	return fmt.Appendf(nil, "%s%s:%0*d:%s", messagePrefix, m.ConversationID, timestampKeyWidth, m.CreatedAt.UnixNano(), m.ID)
}

func conversationPrefix(conv domain.ConversationID) []byte {
	return []byte(messagePrefix + string(conv) + ":")
}

func messageIDKey(id uuid.UUID) []byte {
	return []byte(messageIDPrefix + id.String())
}

func userConvKey(user domain.UserID, conv domain.ConversationID) []byte {
	return []byte(userConvPrefix + string(user) + ":" + string(conv))
}

func (r *BadgerMessageRepository) Create(_ context.Context, message domain.Message) (domain.Message, error) {
	value, err := json.Marshal(message)
	if err != nil {
		return domain.Message{}, err
	}
	key := messageKey(message)
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		if err := txn.Set(messageIDKey(message.ID), key); err != nil {
			return err
		}
		for _, idx := range []userConversation{
			{Owner: message.SenderID, Peer: message.RecipientID, Conv: message.ConversationID},
			{Owner: message.RecipientID, Peer: message.SenderID, Conv: message.ConversationID},
		} {
			b, err := json.Marshal(idx)
			if err != nil {
				return err
			}
			if err := txn.Set(userConvKey(idx.Owner, idx.Conv), b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// ConversationExists reports whether any message, deleted or not, was ever stored for conv.
func (r *BadgerMessageRepository) ConversationExists(_ context.Context, conv domain.ConversationID) (bool, error) {
	var exists bool
	err := r.db.View(func(txn *badger.Txn) error {
		return r.scan(txn, conv, func(domain.Message) bool {
			exists = true
			return false
		})
	})
	return exists, err
}

// FindPaginated walks the conversation from the newest message, skipping deleted ones.
func (r *BadgerMessageRepository) FindPaginated(_ context.Context, a, b domain.UserID, skip, limit int) ([]domain.Message, int, error) {
	var (
		messages []domain.Message
		total    int
	)
	err := r.db.View(func(txn *badger.Txn) error {
		return r.scan(txn, domain.NewConversationID(a, b), func(m domain.Message) bool {
			if m.Deleted {
				return true
			}
			total++
			if total > skip && len(messages) < limit {
				messages = append(messages, m)
			}
			return true
		})
	})
	if err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// RecentConversations lists the peers of userID with the time of the newest
// non-deleted message exchanged, newest first.
func (r *BadgerMessageRepository) RecentConversations(_ context.Context, userID domain.UserID) ([]domain.ConversationSummary, error) {
	var summaries []domain.ConversationSummary
	err := r.db.View(func(txn *badger.Txn) error {
		index, err := r.userConversations(txn, userID)
		if err != nil {
			return err
		}
		for _, uc := range index {
			var last *domain.Message
			err := r.scan(txn, uc.Conv, func(m domain.Message) bool {
				if m.Deleted {
					return true
				}
				last = &m
				return false
			})
			if err != nil {
				return err
			}
			if last != nil {
				summaries = append(summaries, domain.ConversationSummary{UserID: uc.Peer, LastMessageAt: last.CreatedAt})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].LastMessageAt.After(summaries[j].LastMessageAt)
	})
	return summaries, nil
}

// MarkConversationRead flips every unread message sent by other to reader. It returns how many changed.
func (r *BadgerMessageRepository) MarkConversationRead(_ context.Context, reader, other domain.UserID, at time.Time) (int, error) {
	var updated int
	err := r.db.Update(func(txn *badger.Txn) error {
		var pending []domain.Message
		err := r.scan(txn, domain.NewConversationID(reader, other), func(m domain.Message) bool {
			if !m.Deleted && m.RecipientID == reader && m.Status == domain.StatusUnread {
				pending = append(pending, m)
			}
			return true
		})
		if err != nil {
			return err
		}
		for _, m := range pending {
			m.MarkRead(at)
			if err := r.put(txn, m); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

func (r *BadgerMessageRepository) SoftDelete(_ context.Context, messageID uuid.UUID, requester domain.UserID, at time.Time) error {
	return r.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(messageIDKey(messageID))
		if stderrors.Is(err, badger.ErrKeyNotFound) {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		key, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		m, err := r.get(txn, key)
		if stderrors.Is(err, badger.ErrKeyNotFound) || (err == nil && m.Deleted) {
			return errors.ErrMessageNotFound
		}
		if err != nil {
			return err
		}
		if m.SenderID != requester {
			return errors.ErrForbidden
		}
		m.SoftDelete(at)
		return r.put(txn, m)
	})
}

// scan visits the messages of conv from newest to oldest until visit returns false.
func (r *BadgerMessageRepository) scan(txn *badger.Txn, conv domain.ConversationID, visit func(domain.Message) bool) error {
	prefix := conversationPrefix(conv)
	options := badger.DefaultIteratorOptions
	options.Reverse = true
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	for it.Seek(append(prefix, maxTimestampSeek...)); it.ValidForPrefix(prefix); it.Next() {
		var m domain.Message
		err := it.Item().Value(func(value []byte) error {
			return json.Unmarshal(value, &m)
		})
		if err != nil {
			return err
		}
		// A user id containing ':' can make another conversation share the prefix
		if m.ConversationID != conv {
			continue
		}
		if !visit(m) {
			return nil
		}
	}
	return nil
}

func (r *BadgerMessageRepository) userConversations(txn *badger.Txn, userID domain.UserID) ([]userConversation, error) {
	prefix := []byte(userConvPrefix + string(userID) + ":")
	options := badger.DefaultIteratorOptions
	options.Prefix = prefix
	it := txn.NewIterator(options)
	defer it.Close()

	var out []userConversation
	for it.Rewind(); it.Valid(); it.Next() {
		var uc userConversation
		err := it.Item().Value(func(value []byte) error {
			return json.Unmarshal(value, &uc)
		})
		if err != nil {
			return nil, err
		}
		if uc.Owner == userID {
			out = append(out, uc)
		}
	}
	return out, nil
}

func (r *BadgerMessageRepository) get(txn *badger.Txn, key []byte) (domain.Message, error) {
	item, err := txn.Get(key)
	if err != nil {
		return domain.Message{}, err
	}
	var m domain.Message
	err = item.Value(func(value []byte) error {
		return json.Unmarshal(value, &m)
	})
	return m, err
}

func (r *BadgerMessageRepository) put(txn *badger.Txn, m domain.Message) error {
	value, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return txn.Set(messageKey(m), value)
}
