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

package commands

import (
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"github.com/jaycherian/gcp-go-course-video/internal/core/cor"
)

// JobPersistToBigQuery streams one row per finished job into the jobs table.
// The row is built from the job, so it records the terminal state, the
// artifact counts and any error message. It is run after the job has
// reached DELIVERED or FAILED and never changes the job itself.
type JobPersistToBigQuery struct {
	cor.BaseCommand
	client  *bigquery.Client
	dataset string
	table   string
}

func NewJobPersistToBigQuery(name string, client *bigquery.Client, dataset string, table string) *JobPersistToBigQuery {
	return &JobPersistToBigQuery{BaseCommand: *cor.NewBaseCommand(name), client: client, dataset: dataset, table: table}
}

func (s *JobPersistToBigQuery) IsExecutable(context cor.Context) bool {
	return context != nil && context.GetContext() != nil && GetJob(context) != nil && s.client != nil
}

func (s *JobPersistToBigQuery) Execute(context cor.Context) {
	job := GetJob(context)
	record := job.Record()

	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(context.GetContext(), record); err != nil {
		s.Fail(context, fmt.Errorf("bigquery insert failed for unit %s: %w", record.UnitID, err))
		return
	}
	slog.InfoContext(context.GetContext(), "persisted job record", "unit_id", record.UnitID, "state", record.State)
	s.Succeed(context)
}
