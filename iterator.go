package esm

import "iter"

// Collect gathers all items from an iterator into a collection.
// It stops on the first error and returns the records collected so far along with the error.
func Collect(seq iter.Seq2[*Record, error]) (*Collection, error) {
	records := make([]*Record, 0)
	for r, err := range seq {
		if err != nil {
			return newRecordCollection(records), err
		}
		records = append(records, r)
	}
	return newRecordCollection(records), nil
}

// CollectN gathers up to n items from an iterator.
// It stops on the first error and returns the records collected so far along with the error.
func CollectN(seq iter.Seq2[*Record, error], n int) (*Collection, error) {
	records := make([]*Record, 0, n)
	if n <= 0 {
		return newRecordCollection(records), nil
	}
	for r, err := range seq {
		if err != nil {
			return newRecordCollection(records), err
		}
		records = append(records, r)
		if len(records) >= n {
			break
		}
	}
	return newRecordCollection(records), nil
}

// First returns the first item from an iterator, or ErrEmptyIterator.
func First[T any](seq iter.Seq2[T, error]) (T, error) {
	for item, err := range seq {
		return item, err
	}
	var zero T
	return zero, ErrEmptyIterator
}
