package storage

import "poolEngine/internal/model"

// Journal defines an append sink for committed operation records.
type Journal interface {
	AppendOperations(ops []model.OperationRecord) error
}
