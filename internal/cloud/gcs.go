// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cloud

import (
	"fmt"
	"path"
	"strings"
)

// GCSObject identifies an object in Google Cloud Storage.
type GCSObject struct {
	Bucket   string // The name of the GCS bucket.
	Name     string // The name of the object.
	MIMEType string // The MIME type of the object (e.g., "video/mp4").
}

// URI returns the gs:// form of the object.
func (o GCSObject) URI() string {
	return fmt.Sprintf("gs://%s/%s", o.Bucket, o.Name)
}

// ArchivedVideoObject names the archived final video of a unit:
// {prefix}/{unit_id}/{unit_id}.mp4 inside the archive bucket.
func ArchivedVideoObject(storage Storage, unitID string) GCSObject {
	name := path.Join(strings.Trim(storage.ArchivePrefix, "/"), unitID, unitID+".mp4")
	return GCSObject{Bucket: storage.ArchiveBucket, Name: name, MIMEType: "video/mp4"}
}
