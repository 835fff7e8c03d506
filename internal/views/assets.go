package views

const pageStyle = `body{font-family:system-ui,sans-serif;margin:0 auto;max-width:60rem;padding:1rem}
nav ul{display:flex;gap:1rem;list-style:none;padding:0}
nav a.active{font-weight:bold;text-decoration:underline}
.error-banner{background:#fde8e8;border:1px solid #c81e1e;color:#771d1d;padding:.75rem;margin:1rem 0}
table{border-collapse:collapse;width:100%}
td,th{border-bottom:1px solid #ddd;padding:.25rem .5rem;text-align:left}
.empty{color:#666}`

const liveScript = `(function(){
var proto=location.protocol==="https:"?"wss://":"ws://";
var ws=new WebSocket(proto+location.host+"/ws");
var pending=false;
function report(){pending=false;if(ws.readyState===1){ws.send(JSON.stringify({type:"scroll",top:window.scrollY,height:window.innerHeight}));}}
window.addEventListener("scroll",function(){if(!pending){pending=true;requestAnimationFrame(report);}});
ws.addEventListener("open",report);
ws.addEventListener("message",function(ev){
var msg=JSON.parse(ev.data);
if(msg.type==="active_section"){document.querySelectorAll("nav a[data-section]").forEach(function(a){a.classList.toggle("active",a.dataset.section===msg.target);});}
if(msg.type==="content_reloaded"){location.reload();}
if(msg.type==="content_error"){var b=document.getElementById("content-error");b.textContent="Content could not be reloaded: "+(msg.error||"unknown error");b.className="error-banner";b.hidden=false;}
});
})();`
