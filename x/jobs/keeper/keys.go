package keeper

import (
	"encoding/binary"
)

var (
	// JobKeyPrefix is the prefix for job records
	JobKeyPrefix = []byte{0x01}

	// FileJobsPrefix indexes job ids by file, in request order
	FileJobsPrefix = []byte{0x02}

	// NextJobIDKey is the key for the next job ID counter
	NextJobIDKey = []byte{0x03}
)

// JobKey returns the store key for a job record
func JobKey(jobID uint64) []byte {
	return append(append([]byte{}, JobKeyPrefix...), GetJobIDBytes(jobID)...)
}

// FileJobsKeyPrefix returns the prefix of the job index of a file
func FileJobsKeyPrefix(fileID uint64) []byte {
	return append(append([]byte{}, FileJobsPrefix...), GetJobIDBytes(fileID)...)
}

// FileJobKey returns the index key of a job under its file
func FileJobKey(fileID, jobID uint64) []byte {
	return append(FileJobsKeyPrefix(fileID), GetJobIDBytes(jobID)...)
}

// GetJobIDBytes returns the big-endian byte representation of an id
func GetJobIDBytes(id uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, id)
	return bz
}

// GetJobIDFromBytes returns an id from its big-endian byte representation
func GetJobIDFromBytes(bz []byte) uint64 {
	if len(bz) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(bz)
}
