package sqlinline

const QSelectBrandByID = `--sql 39da64fb-5820-4149-ecdb-d6f708192a3b
select id, name, slot_offset, default_platforms, coalesce(credential_ref, ''), active
from brands
where id = $1::text
limit 1;
`

const QListActiveBrands = `--sql 4aeb750c-6931-425a-fdec-e708192a3b4c
select id, name, slot_offset, default_platforms, coalesce(credential_ref, ''), active
from brands
where active
order by id;
`
