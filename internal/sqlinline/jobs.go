package sqlinline

const QInsertJob = `--sql 3f1c2ab4-9d71-4f0e-8a2c-6c1d5e9b4a70
insert into generation_jobs(
  id,
  user_id,
  title,
  lines,
  brand_ids,
  variant,
  hint,
  platforms,
  status,
  step,
  progress,
  brand_outputs,
  created_at,
  updated_at
) values (
  $1::text,
  $2::text,
  $3::text,
  $4::text[],
  $5::text[],
  $6::text,
  $7::text,
  $8::text[],
  $9::text,
  '',
  0,
  $10::jsonb,
  now(),
  now()
);
`

const QSelectJobByID = `--sql 84d0f7e2-1b3a-4c8d-9e5f-2a7b6c4d8e90
select id, user_id, title, lines, brand_ids, variant, hint, platforms,
       status, step, progress, coalesce(error_message, ''), brand_outputs,
       cancel_requested, created_at, updated_at
from generation_jobs
where id = $1::text
limit 1;
`

const QUpdateJobStatus = `--sql 5b9e3c1d-7a42-4f6b-8c0d-9e1f2a3b4c5d
update generation_jobs
set status = $2::text,
    error_message = nullif($3::text, ''),
    updated_at = now()
where id = $1::text;
`

const QUpdateJobProgress = `--sql 6c0f4d2e-8b53-4a7c-9d1e-0f2a3b4c5d6e
update generation_jobs
set step = $2::text,
    progress = greatest(progress, $3::int),
    updated_at = now()
where id = $1::text;
`

const QSetJobBrandOutput = `--sql 7d1a5e3f-9c64-4b8d-a02f-1a3b4c5d6e7f
update generation_jobs
set brand_outputs = jsonb_set(coalesce(brand_outputs, '{}'::jsonb), array[$2::text], $3::jsonb, true),
    updated_at = now()
where id = $1::text;
`

const QUpdateJobBrandStatus = `--sql 8e2b6f40-ad75-4c9e-b130-2b4c5d6e7f80
update generation_jobs
set brand_outputs = jsonb_set(
      jsonb_set(coalesce(brand_outputs, '{}'::jsonb), array[$2::text, 'status'], to_jsonb($3::text), true),
      array[$2::text, 'error'],
      to_jsonb($4::text),
      true
    ),
    updated_at = now()
where id = $1::text;
`

const QRequestJobCancel = `--sql 9f3c7a51-be86-4daf-c241-3c5d6e7f8091
update generation_jobs
set cancel_requested = true,
    updated_at = now()
where id = $1::text
  and status in ('pending', 'generating');
`

const QSelectJobCancelRequested = `--sql a04d8b62-cf97-4eb0-d352-4d6e7f8091a2
select cancel_requested
from generation_jobs
where id = $1::text
limit 1;
`

const QListJobsByStatus = `--sql b15e9c73-d0a8-4fc1-e463-5e7f8091a2b3
select id, user_id, title, lines, brand_ids, variant, hint, platforms,
       status, step, progress, coalesce(error_message, ''), brand_outputs,
       cancel_requested, created_at, updated_at
from generation_jobs
where status = $1::text
order by created_at;
`
