package kidauth

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	loginCodeKeyPrefix      = "alc"
	loginCodeRecordVersion1 = 1
)

type loginCodeRecord struct {
	SecretHash [32]byte
	ExpiresAt  int64
}

// RedisCodeStore is a CodeStore backed by Redis, for deployments where the
// login step and the code confirmation step may land on different nodes.
//
// Verify runs inside a WATCH transaction on the code key, so when several
// confirmations race with the same code exactly one of them consumes it.
type RedisCodeStore struct {
	redis redis.UniversalClient
}

// NewRedisCodeStore wraps an existing Redis client. The client's lifecycle
// stays with the caller.
func NewRedisCodeStore(client redis.UniversalClient) *RedisCodeStore {
	return &RedisCodeStore{redis: client}
}

func (s *RedisCodeStore) key(accountID string) string {
	return loginCodeKeyPrefix + ":" + accountID
}

func (s *RedisCodeStore) Issue(ctx context.Context, accountID, code string, ttl time.Duration) error {
	if accountID == "" || code == "" {
		return ErrMissingField
	}
	if ttl <= 0 {
		return ErrCodeInvalid
	}

	record := loginCodeRecord{
		SecretHash: sha256.Sum256([]byte(code)),
		ExpiresAt:  time.Now().Add(ttl).Unix(),
	}
	encoded := encodeLoginCodeRecord(record)

	if err := s.redis.Set(ctx, s.key(accountID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeStoreUnavailable, err)
	}
	return nil
}

func (s *RedisCodeStore) Verify(ctx context.Context, accountID, code string) error {
	if accountID == "" || code == "" {
		return ErrCodeInvalid
	}

	const maxRetries = 4
	key := s.key(accountID)
	providedHash := sha256.Sum256([]byte(code))

	for i := 0; i < maxRetries; i++ {
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeLoginCodeRecord(data)
			if err != nil {
				return err
			}

			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return ErrCodeInvalid
			}

			if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
				// Leave the entry so the user can retry within the TTL.
				return ErrCodeInvalid
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil):
				return ErrCodeInvalid
			case errors.Is(err, ErrCodeInvalid):
				return err
			default:
				return fmt.Errorf("%w: %v", ErrCodeStoreUnavailable, err)
			}
		}
		return nil
	}

	// Repeated WATCH conflicts mean some other verifier consumed the key.
	return ErrCodeInvalid
}

func (s *RedisCodeStore) Clear(ctx context.Context, accountID string) error {
	if accountID == "" {
		return nil
	}
	if err := s.redis.Del(ctx, s.key(accountID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCodeStoreUnavailable, err)
	}
	return nil
}

func encodeLoginCodeRecord(record loginCodeRecord) []byte {
	var buf bytes.Buffer
	buf.WriteByte(loginCodeRecordVersion1)
	_ = binary.Write(&buf, binary.BigEndian, record.ExpiresAt)
	buf.Write(record.SecretHash[:])
	return buf.Bytes()
}

func decodeLoginCodeRecord(data []byte) (loginCodeRecord, error) {
	var record loginCodeRecord

	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil {
		return record, err
	}
	if version != loginCodeRecordVersion1 {
		return record, errors.New("invalid login code record version")
	}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return record, err
	}
	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return record, err
	}
	return record, nil
}
