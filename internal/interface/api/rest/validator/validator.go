package validator

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"media-portfolio-api/internal/interface/api/rest/dto/media"
	"media-portfolio-api/pkg/batchid"
)

const (
	maxTags      = 20
	maxTagLength = 50
)

var ErrInvalidBatchID = errors.New("batch_id must look like batch_<ulid>")

func IsUUID(s string) (bool, uuid.UUID) {
	id, err := uuid.Parse(s)
	return err == nil, id
}

// ValidateBatchID accepts an empty id; the service then generates one.
func ValidateBatchID(s string) error {
	if s == "" || batchid.IsValid(s) {
		return nil
	}
	return ErrInvalidBatchID
}

// NormalizeTags splits comma separated values, trims them and drops empties
// and duplicates while keeping the first-seen order.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0, len(raw))
	for _, v := range raw {
		for _, t := range strings.Split(v, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			key := strings.ToLower(t)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			tags = append(tags, t)
		}
	}
	return tags
}

func ValidateUpload(r media.UploadRequest, tags []string, files, maxFiles int) map[string]string {
	errs := make(map[string]string)

	if files == 0 {
		errs["files"] = "at least one file is required"
	} else if maxFiles > 0 && files > maxFiles {
		errs["files"] = "too many files in one batch"
	}

	if strings.TrimSpace(r.Title) != r.Title {
		errs["title"] = "title must not start or end with whitespace"
	}

	if len(tags) > maxTags {
		errs["tags"] = "at most 20 tags are allowed"
	} else {
		for _, t := range tags {
			if utf8.RuneCountInString(t) > maxTagLength {
				errs["tags"] = "each tag must be at most 50 characters"
				break
			}
		}
	}

	if err := ValidateBatchID(r.BatchID); err != nil {
		errs["batch_id"] = err.Error()
	}

	if len(errs) == 0 {
		return nil
	}

	return errs
}
