package sqlinline

const QInsertSchedule = `--sql c26fad84-e1b9-4ad2-b574-6f8091a2b3c4
insert into scheduled_publications(
  id,
  user_id,
  content_ref,
  caption,
  platform_title,
  platforms,
  scheduled_at,
  brand,
  variant,
  job_id,
  status,
  results,
  created_at,
  updated_at
) values (
  $1::uuid,
  $2::text,
  $3::text,
  $4::text,
  $5::text,
  $6::text[],
  $7::timestamptz,
  $8::text,
  $9::text,
  nullif($10::text, ''),
  'scheduled',
  '{}'::jsonb,
  now(),
  now()
);
`

const QSelectScheduleByID = `--sql d37a0e95-f2ca-4be3-a685-7091a2b3c4d5
select id, user_id, content_ref, caption, coalesce(platform_title, ''), platforms,
       scheduled_at, brand, variant, coalesce(job_id, ''), status, results,
       coalesce(retry_platforms, '{}'), coalesce(skip_platforms, '{}'),
       coalesce(error_message, ''), created_at, updated_at
from scheduled_publications
where id = $1::uuid
limit 1;
`

// Claims every due scheduled row in one statement. FOR UPDATE SKIP LOCKED
// makes concurrent claimers skip rows another transaction already holds, so
// each row reaches exactly one publisher.
const QClaimDueSchedules = `--sql e48b1fa6-03db-4cf4-b796-81a2b3c4d5e6
with due as (
  select id
  from scheduled_publications
  where status = 'scheduled'
    and scheduled_at <= $1::timestamptz
  order by scheduled_at
  for update skip locked
)
update scheduled_publications sp
set status = 'publishing',
    updated_at = now()
from due
where sp.id = due.id
returning sp.id, sp.user_id, sp.content_ref, sp.caption, coalesce(sp.platform_title, ''),
          sp.platforms, sp.scheduled_at, sp.brand, sp.variant, coalesce(sp.job_id, ''),
          sp.status, sp.results, coalesce(sp.retry_platforms, '{}'),
          coalesce(sp.skip_platforms, '{}'), coalesce(sp.error_message, ''),
          sp.created_at, sp.updated_at;
`

const QSetScheduleOutcome = `--sql f59c20b7-14ec-4d05-a8a7-92b3c4d5e6f7
update scheduled_publications
set status = $2::text,
    results = $3::jsonb,
    error_message = nullif($4::text, ''),
    retry_platforms = null,
    skip_platforms = null,
    updated_at = now()
where id = $1::uuid;
`

const QUpdateScheduleForRetry = `--sql 06ad31c8-25fd-4e16-b9b8-a3c4d5e6f708
update scheduled_publications
set status = 'scheduled',
    scheduled_at = $2::timestamptz,
    retry_platforms = $3::text[],
    skip_platforms = $4::text[],
    error_message = null,
    updated_at = now()
where id = $1::uuid;
`

const QUpdateScheduleTime = `--sql 17be42d9-360e-4f27-cac9-b4d5e6f70819
update scheduled_publications
set scheduled_at = $2::timestamptz,
    status = 'scheduled',
    updated_at = now()
where id = $1::uuid
  and status not in ('publishing', 'published');
`

const QSelectTakenSlots = `--sql 28cf53ea-471f-4038-dbda-c5e6f708192a
select scheduled_at
from scheduled_publications
where brand = $1::text
  and variant = $2::text
  and status in ('scheduled', 'publishing')
order by scheduled_at;
`
